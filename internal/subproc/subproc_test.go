package subproc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on unix shell tools")
	}
}

func TestRun_CapturesStdout(t *testing.T) {
	skipOnWindows(t)

	r := NewRunner(5 * time.Second)
	out, err := r.Run(context.Background(), Options{
		Name: "sh",
		Args: []string{"-c", "printf hello"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if string(out) != "hello" {
		t.Errorf("stdout = %q, want %q", out, "hello")
	}
}

func TestRun_FeedsStdin(t *testing.T) {
	skipOnWindows(t)

	r := NewRunner(5 * time.Second)
	out, err := r.Run(context.Background(), Options{
		Name:  "cat",
		Stdin: []byte("piped input"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if string(out) != "piped input" {
		t.Errorf("stdout = %q, want %q", out, "piped input")
	}
}

func TestRun_NonZeroExitIncludesStderr(t *testing.T) {
	skipOnWindows(t)

	r := NewRunner(5 * time.Second)
	_, err := r.Run(context.Background(), Options{
		Name: "sh",
		Args: []string{"-c", "echo boom >&2; exit 3"},
	})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q should carry stderr output", err)
	}
}

func TestRun_TimeoutKillsProcess(t *testing.T) {
	skipOnWindows(t)

	r := NewRunner(10 * time.Second)
	start := time.Now()
	_, err := r.Run(context.Background(), Options{
		Name:    "sleep",
		Args:    []string{"30"},
		Timeout: 200 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("error = %v, want ErrTimedOut", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v, process was not terminated promptly", elapsed)
	}
}

func TestRun_TimeoutInterruptsBeforeKill(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	marker := filepath.Join(dir, "interrupted")
	script := filepath.Join(dir, "trap.sh")
	content := "#!/bin/sh\n" +
		"trap 'touch " + marker + "; exit 0' INT\n" +
		"sleep 30 >/dev/null 2>&1 &\n" +
		"wait $!\n"
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(10 * time.Second)
	_, err := r.Run(context.Background(), Options{
		Name:    "sh",
		Args:    []string{script},
		Timeout: 200 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("error = %v, want ErrTimedOut", err)
	}

	// The trap only fires if the child got an interrupt rather than an
	// immediate kill.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("child was killed without receiving an interrupt first")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	r := NewRunner(30 * time.Second)
	_, err := r.Run(ctx, Options{Name: "sleep", Args: []string{"30"}})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}

func TestLookPath(t *testing.T) {
	skipOnWindows(t)

	if err := LookPath("sh"); err != nil {
		t.Errorf("sh should be on PATH: %v", err)
	}
	if err := LookPath("definitely-not-a-real-binary-xyz"); err == nil {
		t.Error("expected error for missing binary")
	}
}
