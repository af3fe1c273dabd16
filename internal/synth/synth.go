// Package synth provides the speech synthesis stage backends.
package synth

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/polyvox/polyvox/internal/cache"
	"github.com/polyvox/polyvox/internal/lang"
	"github.com/polyvox/polyvox/internal/pipeline"
)

// Engine identifiers accepted by New.
const (
	EngineGTTS   = "gtts"
	EngineOpenAI = "openai"
	EngineMock   = "mock"
)

// defaultMaxTextLen bounds input so a runaway translation cannot tie
// up the synthesis backend.
const defaultMaxTextLen = 5000

// Config selects and configures a synthesis backend.
type Config struct {
	// Engine is "gtts", "openai" or "mock".
	Engine string

	// Voice overrides the per-language default voice.
	Voice string

	// Speed is the speech rate multiplier.
	Speed float64

	// Slow enables gtts slow mode.
	Slow bool

	// MaxTextLen bounds input length. Zero means the default.
	MaxTextLen int

	// OpenAI settings.
	APIKey string
	Model  string

	// Cache wires the audio cache in front of the backend. Nil
	// disables caching.
	Cache *cache.Manager
}

// New builds the configured synthesizer, with the length guard and
// optional cache layered on top.
func New(cfg Config) (pipeline.Synthesizer, error) {
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}
	maxLen := cfg.MaxTextLen
	if maxLen <= 0 {
		maxLen = defaultMaxTextLen
	}

	var s pipeline.Synthesizer
	switch cfg.Engine {
	case EngineGTTS, "":
		s = NewGTTS(GTTSConfig{Slow: cfg.Slow})
	case EngineOpenAI:
		o, err := NewOpenAI(cfg.APIKey, cfg.Model, cfg.Voice, cfg.Speed)
		if err != nil {
			return nil, err
		}
		s = o
	case EngineMock:
		s = NewMock()
	default:
		return nil, fmt.Errorf("unknown synthesis engine %q (supported: gtts, openai, mock)", cfg.Engine)
	}

	engine := cfg.Engine
	if engine == "" {
		engine = EngineGTTS
	}

	s = &lengthGuard{inner: s, max: maxLen}
	if cfg.Cache != nil {
		s = &cached{inner: s, cache: cfg.Cache, engine: engine, voice: cfg.Voice, speed: cfg.Speed}
	}
	return s, nil
}

// lengthGuard rejects over-long input before it reaches a backend.
type lengthGuard struct {
	inner pipeline.Synthesizer
	max   int
}

func (g *lengthGuard) Synthesize(ctx context.Context, text string, target lang.Language) (pipeline.SynthesisResult, error) {
	if len(text) > g.max {
		return pipeline.SynthesisResult{}, fmt.Errorf(
			"%w: %d characters (max %d)", pipeline.ErrInputTooLong, len(text), g.max)
	}
	return g.inner.Synthesize(ctx, text, target)
}

// cached serves repeat synthesis requests from the audio cache.
// Entries carry the format parameters alongside the samples, so a
// fresh process can serve disk hits without ever invoking a backend.
type cached struct {
	inner  pipeline.Synthesizer
	cache  *cache.Manager
	engine string
	voice  string
	speed  float64
}

func (c *cached) Synthesize(ctx context.Context, text string, target lang.Language) (pipeline.SynthesisResult, error) {
	voice := c.voice
	if voice == "" {
		voice = target.Voice
	}
	key := cache.Key(c.engine, text, target.Code, voice, c.speed)

	if data, ok := c.cache.Get(key); ok {
		if result, err := decodeEntry(data); err == nil {
			return result, nil
		}
		// Undecodable entry: fall through and resynthesize.
	}

	result, err := c.inner.Synthesize(ctx, text, target)
	if err != nil {
		return pipeline.SynthesisResult{}, err
	}

	// A failed cache write never fails synthesis.
	_ = c.cache.Put(key, encodeEntry(result))
	return result, nil
}

// Cache entry layout: 4-byte sample rate, 2-byte channel count,
// 1-byte codec hint length, the hint, then the raw samples.
const entryHeaderLen = 7

func encodeEntry(r pipeline.SynthesisResult) []byte {
	hint := []byte(r.CodecHint)
	buf := make([]byte, entryHeaderLen+len(hint)+len(r.Samples))
	binary.LittleEndian.PutUint32(buf[0:], uint32(r.SampleRate))
	binary.LittleEndian.PutUint16(buf[4:], uint16(r.Channels))
	buf[6] = byte(len(hint))
	copy(buf[entryHeaderLen:], hint)
	copy(buf[entryHeaderLen+len(hint):], r.Samples)
	return buf
}

func decodeEntry(data []byte) (pipeline.SynthesisResult, error) {
	if len(data) < entryHeaderLen {
		return pipeline.SynthesisResult{}, errors.New("cache entry too short")
	}
	hintLen := int(data[6])
	if len(data) < entryHeaderLen+hintLen {
		return pipeline.SynthesisResult{}, errors.New("cache entry truncated")
	}
	samples := data[entryHeaderLen+hintLen:]
	if len(samples) == 0 {
		return pipeline.SynthesisResult{}, errors.New("cache entry has no samples")
	}
	return pipeline.SynthesisResult{
		Samples:    samples,
		SampleRate: int(binary.LittleEndian.Uint32(data[0:])),
		Channels:   int(binary.LittleEndian.Uint16(data[4:])),
		CodecHint:  string(data[entryHeaderLen : entryHeaderLen+hintLen]),
	}, nil
}
