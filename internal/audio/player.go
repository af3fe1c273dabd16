// Package audio plays encoded artifacts on the local device. Playback
// is optional; the pipeline itself never depends on an audio device.
package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/polyvox/polyvox/internal/subproc"
)

// Player plays raw PCM audio.
type Player interface {
	// Play blocks until the samples have been played or ctx ends.
	Play(ctx context.Context, samples []byte, sampleRate, channels int) error
}

const (
	playbackRate     = 44100
	playbackChannels = 1
)

// FilePlayer decodes an encoded artifact with ffmpeg and plays the
// PCM through the given Player.
type FilePlayer struct {
	player Player
	runner *subproc.Runner
}

// NewFilePlayer wires a decoder in front of a PCM player.
func NewFilePlayer(p Player) *FilePlayer {
	return &FilePlayer{
		player: p,
		runner: subproc.NewRunner(30 * time.Second),
	}
}

// PlayFile decodes path to s16le PCM and plays it.
func (f *FilePlayer) PlayFile(ctx context.Context, path string) error {
	if err := subproc.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("playback needs ffmpeg: %w", err)
	}
	pcm, err := f.runner.Run(ctx, subproc.Options{
		Name: "ffmpeg",
		Args: []string{
			"-i", path,
			"-f", "s16le",
			"-ar", fmt.Sprint(playbackRate),
			"-ac", fmt.Sprint(playbackChannels),
			"-",
		},
	})
	if err != nil {
		return fmt.Errorf("decode for playback failed: %w", err)
	}
	return f.player.Play(ctx, pcm, playbackRate, playbackChannels)
}

// OtoPlayer plays PCM through the system audio device.
type OtoPlayer struct {
	context *oto.Context
}

// NewOtoPlayer initializes the audio device. The context is created
// once and reused for every Play call.
func NewOtoPlayer() (*OtoPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   playbackRate,
		ChannelCount: playbackChannels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-ready
	return &OtoPlayer{context: ctx}, nil
}

// Play implements Player. It blocks until the buffer has drained.
func (p *OtoPlayer) Play(ctx context.Context, samples []byte, sampleRate, channels int) error {
	if sampleRate != playbackRate || channels != playbackChannels {
		return fmt.Errorf("player expects %d Hz / %d ch, got %d Hz / %d ch",
			playbackRate, playbackChannels, sampleRate, channels)
	}

	player := p.context.NewPlayer(newPCMReader(samples))
	defer player.Close()
	player.Play()

	// Poll for completion; oto exposes no done channel.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
