package synth

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/polyvox/polyvox/internal/lang"
	"github.com/polyvox/polyvox/internal/pipeline"
)

const (
	mockSampleRate = 22050
	mockChannels   = 1

	// Rough speaking pace used to size the mock output.
	mockPerChar = 60 * time.Millisecond
	mockMinLen  = 300 * time.Millisecond
)

// Mock is a deterministic offline synthesizer. It produces a sine
// tone whose length tracks the input text, which is enough for the
// encoder, the player and the tests to exercise real audio paths.
type Mock struct{}

// NewMock creates the mock engine.
func NewMock() *Mock { return &Mock{} }

// Synthesize implements pipeline.Synthesizer.
func (m *Mock) Synthesize(ctx context.Context, text string, target lang.Language) (pipeline.SynthesisResult, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.SynthesisResult{}, err
	}

	duration := time.Duration(len(text)) * mockPerChar
	if duration < mockMinLen {
		duration = mockMinLen
	}

	frames := int(duration.Seconds() * mockSampleRate)
	samples := make([]byte, frames*2)

	// Pitch varies per language so different targets produce
	// distinguishable audio.
	freq := 220.0 + 20.0*float64(len(target.Code)%5) + float64(target.Code[0]%8)*15.0
	for i := 0; i < frames; i++ {
		v := math.Sin(2 * math.Pi * freq * float64(i) / mockSampleRate)
		sample := int16(v * 0.3 * math.MaxInt16)
		binary.LittleEndian.PutUint16(samples[i*2:], uint16(sample))
	}

	return pipeline.SynthesisResult{
		Samples:    samples,
		SampleRate: mockSampleRate,
		Channels:   mockChannels,
		CodecHint:  "pcm_s16le",
	}, nil
}
