// Package cache stores synthesized audio so repeated sentences skip
// the synthesis backend. Two levels: an in-memory LRU in front of a
// zstd-compressed disk store.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Stats holds cache performance counters.
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Config sizes the two cache levels.
type Config struct {
	// MemoryCapacity in bytes. Zero disables the memory level.
	MemoryCapacity int64

	// DiskCapacity in bytes. Zero disables the disk level.
	DiskCapacity int64

	// DiskPath is the disk cache directory.
	DiskPath string

	// CompressionLevel for disk entries (zstd, 0 disables).
	CompressionLevel int
}

// DefaultConfig returns sensible cache sizes for spoken audio.
func DefaultConfig(diskPath string) Config {
	return Config{
		MemoryCapacity:   8 << 20,   // 8 MB
		DiskCapacity:     100 << 20, // 100 MB
		DiskPath:         diskPath,
		CompressionLevel: 3,
	}
}

// Key derives the cache key for a synthesis request. Engine, voice and
// speed are all part of the key: the same sentence synthesized by a
// different engine or voice is a different artifact, and engines do
// not even agree on the byte format of their output.
func Key(engine, text, langCode, voice string, speed float64) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%s|%.2f", engine, text, langCode, voice, speed))
	return hex.EncodeToString(h[:])
}

// Manager fronts the memory cache with the disk cache behind it.
type Manager struct {
	memory *Memory
	disk   *Disk
	logger *log.Logger
}

// NewManager builds the configured cache levels. Either level may be
// disabled; a Manager with both disabled is a valid no-op cache.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{logger: log.Default().WithPrefix("cache")}
	if cfg.MemoryCapacity > 0 {
		m.memory = NewMemory(cfg.MemoryCapacity)
	}
	if cfg.DiskCapacity > 0 && cfg.DiskPath != "" {
		d, err := NewDisk(cfg.DiskPath, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("disk cache: %w", err)
		}
		m.disk = d
	}
	return m, nil
}

// Get checks memory first, then disk. A disk hit is promoted into
// memory.
func (m *Manager) Get(key string) ([]byte, bool) {
	if m.memory != nil {
		if data, ok := m.memory.Get(key); ok {
			return data, true
		}
	}
	if m.disk != nil {
		if data, ok := m.disk.Get(key); ok {
			if m.memory != nil {
				_ = m.memory.Put(key, data)
			}
			return data, true
		}
	}
	return nil, false
}

// Put writes through both levels. Disk errors are logged, not fatal:
// a failed cache write never fails the pipeline.
func (m *Manager) Put(key string, data []byte) error {
	if m.memory != nil {
		if err := m.memory.Put(key, data); err != nil {
			m.logger.Debug("memory cache put skipped", "err", err)
		}
	}
	if m.disk != nil {
		if err := m.disk.Put(key, data); err != nil {
			m.logger.Warn("disk cache put failed", "err", err)
		}
	}
	return nil
}

// Clear empties both levels.
func (m *Manager) Clear() error {
	if m.memory != nil {
		m.memory.Clear()
	}
	if m.disk != nil {
		if err := m.disk.Clear(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases disk cache resources.
func (m *Manager) Close() error {
	if m.disk != nil {
		return m.disk.Close()
	}
	return nil
}

// LogStats emits a debug summary of both levels.
func (m *Manager) LogStats() {
	if m.memory != nil {
		s := m.memory.Stats()
		m.logger.Debug("memory cache",
			"size", humanize.Bytes(uint64(s.Size)),
			"items", s.ItemCount, "hits", s.Hits, "misses", s.Misses)
	}
	if m.disk != nil {
		s := m.disk.Stats()
		m.logger.Debug("disk cache",
			"size", humanize.Bytes(uint64(s.Size)),
			"items", s.ItemCount, "hits", s.Hits, "misses", s.Misses)
	}
}
