package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Disk is the persistent level. Entries live as individual files named
// by their key, zstd-compressed when a compression level is set.
type Disk struct {
	basePath string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu    sync.Mutex
	stats Stats
}

const (
	plainExt      = ".audio"
	compressedExt = ".audio.zst"
)

// NewDisk creates or reopens a disk cache at basePath. Existing
// entries are picked up so the cache survives restarts.
func NewDisk(basePath string, capacity int64, compressionLevel int) (*Disk, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	d := &Disk{
		basePath: basePath,
		capacity: capacity,
		stats:    Stats{Capacity: capacity},
	}

	if compressionLevel > 0 {
		var err error
		d.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// The decoder is always available so a cache written with
	// compression can be read after compression is turned off.
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	d.decoder = decoder

	if err := d.scan(); err != nil {
		return nil, err
	}
	return d, nil
}

// scan rebuilds the size accounting from the files on disk.
func (d *Disk) scan() error {
	entries, err := os.ReadDir(d.basePath)
	if err != nil {
		return fmt.Errorf("failed to scan cache directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, plainExt) && !strings.HasSuffix(name, compressedExt) {
			continue
		}
		if info, err := e.Info(); err == nil {
			d.size += info.Size()
			d.stats.ItemCount++
		}
	}
	return nil
}

// Get reads and decompresses an entry.
func (d *Disk) Get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	path := filepath.Join(d.basePath, key+compressedExt)
	compressed := true
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(d.basePath, key+plainExt)
		compressed = false
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		d.stats.Misses++
		return nil, false
	}

	// Keep access times fresh for the LRU eviction pass.
	now := time.Now()
	_ = os.Chtimes(path, now, now)

	if compressed {
		data, err := d.decoder.DecodeAll(raw, nil)
		if err != nil {
			// Corrupted entry: drop it rather than serve garbage.
			_ = os.Remove(path)
			d.stats.Misses++
			return nil, false
		}
		d.stats.Hits++
		return data, true
	}
	d.stats.Hits++
	return raw, true
}

// Put writes an entry, evicting the oldest files when over capacity.
func (d *Disk) Put(key string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	payload := data
	ext := plainExt
	if d.encoder != nil {
		payload = d.encoder.EncodeAll(data, nil)
		ext = compressedExt
	}
	size := int64(len(payload))
	if size > d.capacity {
		return ErrItemTooLarge
	}

	// Replacing an entry must not double-count it. A stale variant
	// under the other extension is removed outright.
	for _, oldExt := range []string{plainExt, compressedExt} {
		old := filepath.Join(d.basePath, key+oldExt)
		info, err := os.Stat(old)
		if err != nil {
			continue
		}
		if oldExt != ext {
			_ = os.Remove(old)
		}
		d.size -= info.Size()
		d.stats.ItemCount--
	}

	if err := d.evictFor(size); err != nil {
		return err
	}

	path := filepath.Join(d.basePath, key+ext)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}

	d.size += size
	d.stats.ItemCount++
	return nil
}

// evictFor removes the least recently touched entries until the new
// payload fits.
func (d *Disk) evictFor(incoming int64) error {
	if d.size+incoming <= d.capacity {
		return nil
	}

	entries, err := os.ReadDir(d.basePath)
	if err != nil {
		return fmt.Errorf("failed to list cache directory: %w", err)
	}

	type candidate struct {
		path    string
		size    int64
		modTime time.Time
	}
	var candidates []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(d.basePath, e.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	for _, c := range candidates {
		if d.size+incoming <= d.capacity {
			break
		}
		if err := os.Remove(c.path); err != nil {
			continue
		}
		d.size -= c.size
		d.stats.ItemCount--
		d.stats.Evictions++
	}
	return nil
}

// Clear removes every entry.
func (d *Disk) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.basePath)
	if err != nil {
		return fmt.Errorf("failed to list cache directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			_ = os.Remove(filepath.Join(d.basePath, e.Name()))
		}
	}
	d.size = 0
	d.stats.ItemCount = 0
	return nil
}

// Stats returns a snapshot of the counters.
func (d *Disk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.Size = d.size
	return s
}

// Close releases the zstd resources.
func (d *Disk) Close() error {
	if d.encoder != nil {
		if err := d.encoder.Close(); err != nil {
			return err
		}
	}
	d.decoder.Close()
	return nil
}
