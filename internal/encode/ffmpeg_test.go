package encode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/polyvox/polyvox/internal/pipeline"
)

// fakeTool installs a shell script named ffmpeg on a private PATH so
// tests never depend on a real encoder install.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a unix shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, ffmpegBinary)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("could not write fake tool: %v", err)
	}
	t.Setenv("PATH", dir)
	return dir
}

func pcmAudio() pipeline.SynthesisResult {
	return pipeline.SynthesisResult{
		Samples:    make([]byte, 22050*2), // one second of mono s16le
		SampleRate: 22050,
		Channels:   1,
		CodecHint:  "pcm_s16le",
	}
}

func TestEncode_Success(t *testing.T) {
	fakeTool(t, `for last; do :; done
printf 'ENCODED' > "$last"`)

	tempDir := t.TempDir()
	enc := NewFFmpeg(Config{TempDir: tempDir})
	dest := filepath.Join(t.TempDir(), "out.mp3")

	artifact, err := enc.Encode(context.Background(), pcmAudio(), pipeline.EncodeSpec{
		Format:     "mp3",
		OutputPath: dest,
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if artifact.Path != dest {
		t.Errorf("artifact path = %q, want %q", artifact.Path, dest)
	}
	if artifact.Container != "mp3" {
		t.Errorf("container = %q, want mp3", artifact.Container)
	}
	if artifact.Duration != time.Second {
		t.Errorf("duration = %v, want 1s from PCM math", artifact.Duration)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("artifact file missing: %v", err)
	}

	// The staged input file must be gone.
	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Errorf("temp dir still holds %d files after success", len(entries))
	}
}

func TestEncode_ProcessFailureLeavesNothing(t *testing.T) {
	fakeTool(t, `echo "conversion exploded" >&2
exit 1`)

	tempDir := t.TempDir()
	enc := NewFFmpeg(Config{TempDir: tempDir})
	destDir := t.TempDir()
	dest := filepath.Join(destDir, "out.mp3")

	_, err := enc.Encode(context.Background(), pcmAudio(), pipeline.EncodeSpec{
		Format:     "mp3",
		OutputPath: dest,
	})
	if !errors.Is(err, pipeline.ErrEncoderProcess) {
		t.Fatalf("error = %v, want ErrEncoderProcess", err)
	}

	if entries, _ := os.ReadDir(destDir); len(entries) != 0 {
		t.Errorf("destination dir holds %d files after failure, want 0", len(entries))
	}
	if entries, _ := os.ReadDir(tempDir); len(entries) != 0 {
		t.Errorf("temp dir holds %d files after failure, want 0", len(entries))
	}
}

func TestEncode_Timeout(t *testing.T) {
	fakeTool(t, `exec /bin/sleep 30`)

	tempDir := t.TempDir()
	enc := NewFFmpeg(Config{Timeout: 300 * time.Millisecond, TempDir: tempDir})
	destDir := t.TempDir()

	start := time.Now()
	_, err := enc.Encode(context.Background(), pcmAudio(), pipeline.EncodeSpec{
		Format:     "mp3",
		OutputPath: filepath.Join(destDir, "out.mp3"),
	})
	if !errors.Is(err, pipeline.ErrEncoderTimeout) {
		t.Fatalf("error = %v, want ErrEncoderTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("timeout handling took %v, process was not killed", elapsed)
	}

	if entries, _ := os.ReadDir(destDir); len(entries) != 0 {
		t.Errorf("destination dir holds %d files after timeout, want 0", len(entries))
	}
	if entries, _ := os.ReadDir(tempDir); len(entries) != 0 {
		t.Errorf("temp dir holds %d files after timeout, want 0", len(entries))
	}
}

func TestEncode_MissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	enc := NewFFmpeg(Config{})
	if err := enc.Available(); !errors.Is(err, pipeline.ErrEncoderUnavailable) {
		t.Errorf("Available error = %v, want ErrEncoderUnavailable", err)
	}

	_, err := enc.Encode(context.Background(), pcmAudio(), pipeline.EncodeSpec{Format: "mp3"})
	if !errors.Is(err, pipeline.ErrEncoderUnavailable) {
		t.Errorf("Encode error = %v, want ErrEncoderUnavailable", err)
	}
}

func TestEncode_UnsupportedFormat(t *testing.T) {
	fakeTool(t, `exit 0`)

	enc := NewFFmpeg(Config{})
	_, err := enc.Encode(context.Background(), pcmAudio(), pipeline.EncodeSpec{Format: "flac"})
	if !errors.Is(err, pipeline.ErrEncoderProcess) {
		t.Errorf("error = %v, want ErrEncoderProcess for unsupported format", err)
	}
}

func TestEncode_EmptyOutputIsFailure(t *testing.T) {
	fakeTool(t, `for last; do :; done
: > "$last"`)

	enc := NewFFmpeg(Config{})
	_, err := enc.Encode(context.Background(), pcmAudio(), pipeline.EncodeSpec{
		Format:     "wav",
		OutputPath: filepath.Join(t.TempDir(), "out.wav"),
	})
	if !errors.Is(err, pipeline.ErrEncoderProcess) {
		t.Errorf("error = %v, want ErrEncoderProcess for empty output", err)
	}
}
