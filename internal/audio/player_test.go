package audio

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestPCMReader_DrainsData(t *testing.T) {
	data := make([]byte, 1000)
	r := newPCMReader(data)

	total := 0
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}
	if total != len(data) {
		t.Errorf("read %d bytes, want %d", total, len(data))
	}
}

func TestMockPlayer_RecordsCalls(t *testing.T) {
	m := NewMockPlayer()
	if err := m.Play(context.Background(), make([]byte, 100), 44100, 1); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	calls := m.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if calls[0].Bytes != 100 || calls[0].SampleRate != 44100 {
		t.Errorf("unexpected call record: %+v", calls[0])
	}
}

func TestMockPlayer_RespectsContext(t *testing.T) {
	m := NewMockPlayer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Play(ctx, nil, 44100, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestFilePlayer_DecodesThenPlays(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a unix shell")
	}

	// Fake ffmpeg writes a fixed PCM payload to stdout.
	dir := t.TempDir()
	script := "#!/bin/sh\nhead -c 2048 /dev/zero\n"
	if err := os.WriteFile(filepath.Join(dir, "ffmpeg"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+"/usr/bin"+string(os.PathListSeparator)+"/bin")

	m := NewMockPlayer()
	fp := NewFilePlayer(m)
	if err := fp.PlayFile(context.Background(), "whatever.mp3"); err != nil {
		t.Fatalf("PlayFile failed: %v", err)
	}

	calls := m.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if calls[0].Bytes != 2048 {
		t.Errorf("played %d bytes, want 2048", calls[0].Bytes)
	}
	if calls[0].SampleRate != playbackRate || calls[0].Channels != playbackChannels {
		t.Errorf("playback format %+v does not match the fixed player format", calls[0])
	}
}

func TestFilePlayer_MissingDecoder(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	fp := NewFilePlayer(NewMockPlayer())
	if err := fp.PlayFile(context.Background(), "x.mp3"); err == nil {
		t.Error("expected error when ffmpeg is missing")
	}
}
