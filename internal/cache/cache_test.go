package cache

import (
	"bytes"
	"fmt"
	"testing"
)

func TestKey_DistinguishesInputs(t *testing.T) {
	base := Key("gtts", "hola", "es", "es-ES-standard", 1.0)
	variants := []string{
		Key("mock", "hola", "es", "es-ES-standard", 1.0),
		Key("gtts", "hola", "es", "es-ES-standard", 1.5),
		Key("gtts", "hola", "es", "other-voice", 1.0),
		Key("gtts", "hola", "fr", "es-ES-standard", 1.0),
		Key("gtts", "adiós", "es", "es-ES-standard", 1.0),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collides with base key", i)
		}
	}
	if base != Key("gtts", "hola", "es", "es-ES-standard", 1.0) {
		t.Error("key is not deterministic")
	}
}

func TestMemory_PutGetEvict(t *testing.T) {
	c := NewMemory(100)

	if err := c.Put("a", make([]byte, 60)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.Put("b", make([]byte, 30)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}

	// c does not fit next to a and b; b is LRU and must go.
	if err := c.Put("c", make([]byte, 40)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a was recently used and should survive")
	}

	if err := c.Put("huge", make([]byte, 101)); err != ErrItemTooLarge {
		t.Errorf("oversized put error = %v, want ErrItemTooLarge", err)
	}
}

func TestMemory_OverwriteAdjustsSize(t *testing.T) {
	c := NewMemory(100)
	if err := c.Put("k", make([]byte, 80)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.Put("k", make([]byte, 10)); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if s := c.Stats(); s.Size != 10 || s.ItemCount != 1 {
		t.Errorf("stats = %+v, want size 10 and 1 item", s)
	}
}

func TestDisk_RoundTripCompressed(t *testing.T) {
	d, err := NewDisk(t.TempDir(), 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	defer d.Close()

	value := bytes.Repeat([]byte("audio-sample "), 500)
	if err := d.Put("key1", value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok := d.Get("key1")
	if !ok {
		t.Fatal("Get missed a stored key")
	}
	if !bytes.Equal(got, value) {
		t.Error("round-trip mismatch")
	}

	if s := d.Stats(); s.Size >= int64(len(value)) {
		t.Errorf("compressed size %d should beat raw size %d for repetitive data", s.Size, len(value))
	}
}

func TestDisk_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	d, err := NewDisk(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	if err := d.Put("persist", []byte("across restarts")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	d.Close()

	d2, err := NewDisk(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer d2.Close()

	got, ok := d2.Get("persist")
	if !ok || string(got) != "across restarts" {
		t.Errorf("Get after reopen = %q, %v", got, ok)
	}
	if s := d2.Stats(); s.ItemCount != 1 {
		t.Errorf("reopened item count = %d, want 1", s.ItemCount)
	}
}

func TestDisk_OverwriteAdjustsAccounting(t *testing.T) {
	// Compression off so sizes are predictable.
	d, err := NewDisk(t.TempDir(), 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	defer d.Close()

	if err := d.Put("k", make([]byte, 100)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := d.Put("k", make([]byte, 100)); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if s := d.Stats(); s.Size != 100 || s.ItemCount != 1 {
		t.Errorf("stats after overwrite: size=%d items=%d, want size=100 items=1", s.Size, s.ItemCount)
	}

	if err := d.Put("k", make([]byte, 40)); err != nil {
		t.Fatalf("shrinking overwrite failed: %v", err)
	}
	if s := d.Stats(); s.Size != 40 || s.ItemCount != 1 {
		t.Errorf("stats after shrink: size=%d items=%d, want size=40 items=1", s.Size, s.ItemCount)
	}
}

func TestDisk_OverwriteReplacesStaleExtension(t *testing.T) {
	dir := t.TempDir()

	// Written compressed, then rewritten with compression off: the
	// compressed variant must not linger next to the plain one.
	d, err := NewDisk(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	if err := d.Put("k", bytes.Repeat([]byte("audio "), 200)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	d.Close()

	d2, err := NewDisk(dir, 1<<20, 0)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer d2.Close()
	if err := d2.Put("k", []byte("fresh")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	if s := d2.Stats(); s.ItemCount != 1 {
		t.Errorf("item count = %d, want 1 after cross-extension overwrite", s.ItemCount)
	}
	got, ok := d2.Get("k")
	if !ok || string(got) != "fresh" {
		t.Errorf("Get = %q, %v, want the rewritten payload", got, ok)
	}
}

func TestDisk_EvictsOldEntries(t *testing.T) {
	// Compression off so sizes are predictable.
	d, err := NewDisk(t.TempDir(), 300, 0)
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	defer d.Close()

	for i := 0; i < 5; i++ {
		if err := d.Put(fmt.Sprintf("key%d", i), make([]byte, 100)); err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
	}
	s := d.Stats()
	if s.Size > 300 {
		t.Errorf("size %d exceeds capacity", s.Size)
	}
	if s.Evictions == 0 {
		t.Error("expected evictions when over capacity")
	}
}

func TestManager_PromotesDiskHits(t *testing.T) {
	cfg := Config{
		MemoryCapacity:   1 << 20,
		DiskCapacity:     1 << 20,
		DiskPath:         t.TempDir(),
		CompressionLevel: 3,
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer m.Close()

	if err := m.Put("k", []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Drop the memory level to force a disk hit.
	m.memory.Clear()
	if _, ok := m.Get("k"); !ok {
		t.Fatal("disk level should serve the key")
	}

	// The disk hit must have been promoted to memory.
	if _, ok := m.memory.Get("k"); !ok {
		t.Error("disk hit was not promoted to the memory level")
	}
}

func TestManager_NoOpLevels(t *testing.T) {
	m, err := NewManager(Config{})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer m.Close()

	if err := m.Put("k", []byte("v")); err != nil {
		t.Fatalf("Put on no-op cache failed: %v", err)
	}
	if _, ok := m.Get("k"); ok {
		t.Error("no-op cache should never hit")
	}
}
