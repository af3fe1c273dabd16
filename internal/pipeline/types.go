// Package pipeline sequences translation, speech synthesis and audio
// encoding into a single run and owns the error taxonomy shared by the
// component implementations.
package pipeline

import (
	"context"
	"time"

	"github.com/polyvox/polyvox/internal/lang"
)

// Stage identifies one step of the pipeline.
type Stage string

const (
	StageNone        Stage = "none"
	StageTranslation Stage = "translation"
	StageSynthesis   Stage = "synthesis"
	StageEncoding    Stage = "encoding"
)

// State is the orchestrator's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateTranslating
	StateSynthesizing
	StateEncoding
	StateDone
	StateFailed
)

// String returns a readable state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTranslating:
		return "translating"
	case StateSynthesizing:
		return "synthesizing"
	case StateEncoding:
		return "encoding"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// TranslationRequest is the validated input to the translation stage.
// Value object: built once per run, never mutated.
type TranslationRequest struct {
	SourceText string
	Target     lang.Language
}

// TranslationResult is the translation stage output. Discarded once
// synthesis has consumed it.
type TranslationResult struct {
	TranslatedText string
	Target         lang.Language
}

// SynthesisResult is raw or intermediate audio produced by a
// synthesizer, owned by the orchestrator until the encoder takes it.
type SynthesisResult struct {
	Samples    []byte
	SampleRate int
	Channels   int

	// CodecHint tells the encoder how to interpret Samples,
	// e.g. "pcm_s16le" or "mp3".
	CodecHint string
}

// Duration computes the audio length for raw PCM payloads. Returns
// zero for compressed hints where the sample math does not apply.
func (r SynthesisResult) Duration() time.Duration {
	if r.CodecHint != "pcm_s16le" || r.SampleRate <= 0 || r.Channels <= 0 {
		return 0
	}
	frames := len(r.Samples) / (2 * r.Channels)
	return time.Duration(frames) * time.Second / time.Duration(r.SampleRate)
}

// EncodedArtifact is the final output of a run.
type EncodedArtifact struct {
	Path      string
	Container string
	Duration  time.Duration
}

// EncodeSpec tells the encoder what to produce.
type EncodeSpec struct {
	// Container format: "mp3", "wav" or "ogg".
	Format string

	// OutputPath is the destination file. When empty the encoder
	// chooses a name in the working directory.
	OutputPath string
}

// Translator converts source-language text into the target language.
type Translator interface {
	Translate(ctx context.Context, req TranslationRequest) (TranslationResult, error)
}

// Synthesizer converts translated text into audio data.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, target lang.Language) (SynthesisResult, error)
}

// Encoder turns synthesized audio into the final artifact, typically
// by driving an external tool.
type Encoder interface {
	// Available reports whether the encoder can run at all. Checked
	// once at startup so a missing tool surfaces before any work.
	Available() error

	Encode(ctx context.Context, audio SynthesisResult, spec EncodeSpec) (EncodedArtifact, error)
}
