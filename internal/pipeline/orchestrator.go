package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/polyvox/polyvox/internal/lang"
)

// Config carries the read-only settings shared by every run. Built
// once at startup and never mutated afterwards.
type Config struct {
	// Per-stage wall-clock budgets.
	TranslateTimeout  time.Duration
	SynthesizeTimeout time.Duration
	EncodeTimeout     time.Duration

	// Encode describes the final artifact.
	Encode EncodeSpec
}

// DefaultConfig returns the stock per-stage budgets.
func DefaultConfig() Config {
	return Config{
		TranslateTimeout:  30 * time.Second,
		SynthesizeTimeout: 60 * time.Second,
		EncodeTimeout:     30 * time.Second,
		Encode:            EncodeSpec{Format: "mp3"},
	}
}

// Orchestrator sequences the three stages. It performs no translation,
// synthesis or encoding itself; it validates input, enforces budgets
// and maps component errors into the taxonomy.
type Orchestrator struct {
	translator  Translator
	synthesizer Synthesizer
	encoder     Encoder
	config      Config
	logger      *log.Logger
}

// New creates an orchestrator. All three components are required.
func New(t Translator, s Synthesizer, e Encoder, cfg Config) (*Orchestrator, error) {
	if t == nil {
		return nil, errors.New("translator is required")
	}
	if s == nil {
		return nil, errors.New("synthesizer is required")
	}
	if e == nil {
		return nil, errors.New("encoder is required")
	}
	if cfg.TranslateTimeout <= 0 || cfg.SynthesizeTimeout <= 0 || cfg.EncodeTimeout <= 0 {
		return nil, errors.New("stage timeouts must be positive")
	}
	return &Orchestrator{
		translator:  t,
		synthesizer: s,
		encoder:     e,
		config:      cfg,
		logger:      log.Default().WithPrefix("pipeline"),
	}, nil
}

// validTransitions is the run state machine. Failed is reachable from
// every active state and therefore not listed.
var validTransitions = map[State][]State{
	StateIdle:         {StateTranslating},
	StateTranslating:  {StateSynthesizing},
	StateSynthesizing: {StateEncoding},
	StateEncoding:     {StateDone},
}

// run tracks the state of a single invocation. Each Run call owns its
// own instance, so concurrent runs never share mutable state.
type run struct {
	id     string
	state  State
	logger *log.Logger
}

func (r *run) transition(to State) {
	if to == StateFailed {
		r.logger.Debug("state transition", "from", r.state, "to", to)
		r.state = to
		return
	}
	for _, next := range validTransitions[r.state] {
		if next == to {
			r.logger.Debug("state transition", "from", r.state, "to", to)
			r.state = to
			return
		}
	}
	// A bad transition is a programming error in the orchestrator, not
	// a user-facing failure.
	panic(fmt.Sprintf("pipeline: invalid transition %s -> %s", r.state, to))
}

// Run executes the full pipeline for one sentence. It returns either a
// non-empty artifact or exactly one taxonomy error, never both.
func (o *Orchestrator) Run(ctx context.Context, sentence, targetLanguage string) (EncodedArtifact, error) {
	r := &run{
		id:    uuid.NewString(),
		state: StateIdle,
	}
	r.logger = o.logger.With("run", r.id[:8])

	req, err := o.validate(sentence, targetLanguage)
	if err != nil {
		return EncodedArtifact{}, err
	}

	started := time.Now()
	r.logger.Debug("run started", "target", req.Target.Code, "chars", len(req.SourceText))

	// Translation
	r.transition(StateTranslating)
	translated, err := o.translate(ctx, r, req)
	if err != nil {
		r.transition(StateFailed)
		return EncodedArtifact{}, err
	}

	// Synthesis
	r.transition(StateSynthesizing)
	audio, err := o.synthesize(ctx, r, translated)
	if err != nil {
		r.transition(StateFailed)
		return EncodedArtifact{}, err
	}
	// Encoding
	r.transition(StateEncoding)
	artifact, err := o.encode(ctx, r, audio)
	if err != nil {
		r.transition(StateFailed)
		return EncodedArtifact{}, err
	}

	r.transition(StateDone)
	r.logger.Info("run complete",
		"artifact", artifact.Path,
		"duration", artifact.Duration,
		"elapsed", time.Since(started))
	return artifact, nil
}

// validate builds the immutable request or fails before any stage is
// entered.
func (o *Orchestrator) validate(sentence, targetLanguage string) (TranslationRequest, error) {
	text := strings.TrimSpace(sentence)
	if text == "" {
		return TranslationRequest{}, ErrEmptySentence
	}
	target, ok := lang.Resolve(targetLanguage)
	if !ok {
		return TranslationRequest{}, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedLanguage, targetLanguage, lang.Describe())
	}
	return TranslationRequest{SourceText: text, Target: target}, nil
}

func (o *Orchestrator) translate(ctx context.Context, r *run, req TranslationRequest) (TranslationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.TranslateTimeout)
	defer cancel()

	started := time.Now()
	result, err := o.translator.Translate(ctx, req)
	if err != nil {
		return TranslationResult{}, stageErr(StageTranslation, o.mapTimeout(ctx, err))
	}
	if strings.TrimSpace(result.TranslatedText) == "" {
		return TranslationResult{}, stageErr(StageTranslation,
			fmt.Errorf("%w: empty translation", ErrTranslationService))
	}
	r.logger.Debug("translated", "elapsed", time.Since(started))
	return result, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, r *run, in TranslationResult) (SynthesisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.SynthesizeTimeout)
	defer cancel()

	started := time.Now()
	audio, err := o.synthesizer.Synthesize(ctx, in.TranslatedText, in.Target)
	if err != nil {
		return SynthesisResult{}, stageErr(StageSynthesis, o.mapTimeout(ctx, err))
	}
	if len(audio.Samples) == 0 {
		return SynthesisResult{}, stageErr(StageSynthesis,
			fmt.Errorf("%w: backend produced no audio", ErrSynthesis))
	}
	r.logger.Debug("synthesized", "bytes", len(audio.Samples), "elapsed", time.Since(started))
	return audio, nil
}

func (o *Orchestrator) encode(ctx context.Context, r *run, audio SynthesisResult) (EncodedArtifact, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.EncodeTimeout)
	defer cancel()

	started := time.Now()
	artifact, err := o.encoder.Encode(ctx, audio, o.config.Encode)
	if err != nil {
		// The encoder guarantees its own temp cleanup; the requested
		// output must not survive a failed run either.
		o.removePartial(o.config.Encode.OutputPath)
		return EncodedArtifact{}, stageErr(StageEncoding, o.mapTimeout(ctx, err))
	}
	r.logger.Debug("encoded", "path", artifact.Path, "elapsed", time.Since(started))
	return artifact, nil
}

// mapTimeout folds context expiry into the taxonomy. Component errors
// that already carry a taxonomy sentinel pass through untouched.
func (o *Orchestrator) mapTimeout(ctx context.Context, err error) error {
	if errors.Is(err, ErrEncoderTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func (o *Orchestrator) removePartial(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err == nil {
		if rmErr := os.Remove(path); rmErr != nil {
			o.logger.Warn("could not remove partial artifact", "path", path, "err", rmErr)
		}
	}
}
