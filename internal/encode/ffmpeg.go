// Package encode turns synthesized audio into the final artifact by
// driving ffmpeg as a child process.
package encode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/polyvox/polyvox/internal/pipeline"
	"github.com/polyvox/polyvox/internal/subproc"
)

const (
	ffmpegBinary  = "ffmpeg"
	ffprobeBinary = "ffprobe"
)

// codecArgs maps a container format to its ffmpeg codec flags.
var codecArgs = map[string][]string{
	"mp3": {"-codec:a", "libmp3lame", "-qscale:a", "4"},
	"wav": {"-codec:a", "pcm_s16le"},
	"ogg": {"-codec:a", "libvorbis"},
}

// SupportedFormat reports whether a codec mapping exists for format.
func SupportedFormat(format string) bool {
	_, ok := codecArgs[format]
	return ok
}

// Config configures the ffmpeg encoder.
type Config struct {
	// Timeout bounds one ffmpeg invocation. Zero means 30s.
	Timeout time.Duration

	// TempDir holds intermediate input files. Empty means the system
	// temp directory.
	TempDir string
}

// FFmpeg implements pipeline.Encoder.
type FFmpeg struct {
	timeout time.Duration
	tempDir string
	runner  *subproc.Runner
	logger  *log.Logger
}

// NewFFmpeg creates the encoder.
func NewFFmpeg(cfg Config) *FFmpeg {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &FFmpeg{
		timeout: timeout,
		tempDir: tempDir,
		runner:  subproc.NewRunner(timeout),
		logger:  log.Default().WithPrefix("encode"),
	}
}

// Available reports whether ffmpeg is on PATH. Checked at startup so
// a missing tool fails before any translation work happens.
func (e *FFmpeg) Available() error {
	if err := subproc.LookPath(ffmpegBinary); err != nil {
		return fmt.Errorf("%w: %v", pipeline.ErrEncoderUnavailable, err)
	}
	return nil
}

// Encode implements pipeline.Encoder. The input lands in a temp file,
// ffmpeg writes a partial next to the destination, and only a fully
// written artifact is renamed into place. Every temp resource is
// removed on all exit paths.
func (e *FFmpeg) Encode(ctx context.Context, audio pipeline.SynthesisResult, spec pipeline.EncodeSpec) (pipeline.EncodedArtifact, error) {
	if err := e.Available(); err != nil {
		return pipeline.EncodedArtifact{}, err
	}

	format := spec.Format
	if format == "" {
		format = "mp3"
	}
	codec, ok := codecArgs[format]
	if !ok {
		return pipeline.EncodedArtifact{}, fmt.Errorf(
			"%w: unsupported output format %q (supported: mp3, wav, ogg)",
			pipeline.ErrEncoderProcess, format)
	}

	inPath, cleanup, err := e.writeInput(audio)
	if err != nil {
		return pipeline.EncodedArtifact{}, err
	}
	defer cleanup()

	dest := spec.OutputPath
	if dest == "" {
		dest = fmt.Sprintf("polyvox-%s.%s", uuid.NewString()[:8], format)
	}
	partial := dest + ".partial." + format

	args := e.inputArgs(audio, inPath)
	args = append(args, codec...)
	args = append(args, "-f", format, "-y", partial)

	started := time.Now()
	_, err = e.runner.Run(ctx, subproc.Options{
		Name:    ffmpegBinary,
		Args:    args,
		Timeout: e.timeout,
	})
	if err != nil {
		// Never leave a partial artifact behind.
		_ = os.Remove(partial)
		if errors.Is(err, subproc.ErrTimedOut) {
			return pipeline.EncodedArtifact{}, fmt.Errorf("%w after %v", pipeline.ErrEncoderTimeout, e.timeout)
		}
		return pipeline.EncodedArtifact{}, fmt.Errorf("%w: %v", pipeline.ErrEncoderProcess, err)
	}

	info, err := os.Stat(partial)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(partial)
		return pipeline.EncodedArtifact{}, fmt.Errorf("%w: ffmpeg produced no output", pipeline.ErrEncoderProcess)
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return pipeline.EncodedArtifact{}, fmt.Errorf("%w: could not move artifact into place: %v",
			pipeline.ErrEncoderProcess, err)
	}

	e.logger.Debug("encoded artifact",
		"path", dest, "format", format, "bytes", info.Size(), "elapsed", time.Since(started))

	return pipeline.EncodedArtifact{
		Path:      dest,
		Container: format,
		Duration:  e.duration(ctx, audio, dest),
	}, nil
}

// writeInput stages the synthesized audio as a temp file and returns
// its path with a cleanup func.
func (e *FFmpeg) writeInput(audio pipeline.SynthesisResult) (string, func(), error) {
	ext := ".raw"
	if audio.CodecHint == "mp3" {
		ext = ".mp3"
	}
	f, err := os.CreateTemp(e.tempDir, "polyvox-in-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("%w: could not create temp input: %v", pipeline.ErrEncoderProcess, err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.Write(audio.Samples); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("%w: could not write temp input: %v", pipeline.ErrEncoderProcess, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%w: could not flush temp input: %v", pipeline.ErrEncoderProcess, err)
	}
	return path, cleanup, nil
}

// inputArgs builds the ffmpeg input flags. Raw PCM needs its shape
// spelled out; containerized input is self-describing.
func (e *FFmpeg) inputArgs(audio pipeline.SynthesisResult, inPath string) []string {
	if audio.CodecHint == "pcm_s16le" {
		return []string{
			"-f", "s16le",
			"-ar", strconv.Itoa(audio.SampleRate),
			"-ac", strconv.Itoa(audio.Channels),
			"-i", inPath,
		}
	}
	return []string{"-i", inPath}
}

// duration computes the artifact length: exact math for PCM input,
// ffprobe when available for everything else, zero otherwise.
func (e *FFmpeg) duration(ctx context.Context, audio pipeline.SynthesisResult, path string) time.Duration {
	if d := audio.Duration(); d > 0 {
		return d
	}
	if subproc.LookPath(ffprobeBinary) != nil {
		return 0
	}
	out, err := e.runner.Run(ctx, subproc.Options{
		Name: ffprobeBinary,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		},
		Timeout: 10 * time.Second,
	})
	if err != nil {
		e.logger.Debug("ffprobe failed", "err", err)
		return 0
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
