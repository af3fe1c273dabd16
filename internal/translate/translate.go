// Package translate provides the translation stage backends.
package translate

import (
	"fmt"

	"github.com/polyvox/polyvox/internal/pipeline"
)

// Engine identifiers accepted by New.
const (
	EngineLexicon = "lexicon"
	EngineOpenAI  = "openai"
)

// Config selects and configures a translation backend.
type Config struct {
	// Engine is "lexicon" or "openai".
	Engine string

	// OpenAI settings, used when Engine is "openai".
	APIKey string
	Model  string

	// Retries bounds transient-error retries. Zero disables retrying.
	Retries int
}

// New builds the configured translator, wrapped with bounded retries
// when Config.Retries is positive.
func New(cfg Config) (pipeline.Translator, error) {
	var t pipeline.Translator
	switch cfg.Engine {
	case EngineLexicon, "":
		t = NewLexicon()
	case EngineOpenAI:
		ot, err := NewOpenAI(cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		t = ot
	default:
		return nil, fmt.Errorf("unknown translation engine %q (supported: lexicon, openai)", cfg.Engine)
	}
	if cfg.Retries > 0 {
		t = withRetry(t, cfg.Retries)
	}
	return t, nil
}
