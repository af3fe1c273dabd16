package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline. Component implementations wrap
// these so callers can classify failures with errors.Is without
// knowing which backend produced them.
var (
	// Validation errors
	ErrEmptySentence       = errors.New("sentence is empty")
	ErrUnsupportedLanguage = errors.New("unsupported target language")

	// Translation errors
	ErrTranslationService = errors.New("translation service failed")
	ErrPhraseNotFound     = errors.New("phrase not in the built-in lexicon")

	// Synthesis errors
	ErrVoiceUnavailable = errors.New("no voice available for language")
	ErrSynthesis        = errors.New("speech synthesis failed")
	ErrInputTooLong     = errors.New("input text exceeds synthesis limit")

	// Encoding errors
	ErrEncoderUnavailable = errors.New("audio encoder not found")
	ErrEncoderProcess     = errors.New("audio encoder process failed")
	ErrEncoderTimeout     = errors.New("audio encoder timed out")

	// General errors
	ErrTimeout = errors.New("pipeline stage timed out")
)

// retryable marks the sentinels that represent transient conditions.
// Structural failures (unsupported language, missing binary, a phrase
// the lexicon will never know) are never retried.
var retryable = map[error]bool{
	ErrTranslationService: true,
	ErrSynthesis:          true,
}

// IsRetryable reports whether an error is worth a bounded retry at the
// component level.
func IsRetryable(err error) bool {
	for sentinel, ok := range retryable {
		if ok && errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// StageError annotates a component error with the stage it came from.
// The orchestrator returns exactly one of these per failed run.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

// Unwrap returns the component error, keeping errors.Is chains intact.
func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// FailedStage extracts the stage name from a pipeline error, or "none"
// when the error did not come from a stage (validation failures).
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return StageNone
}
