package translate

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/polyvox/polyvox/internal/pipeline"
)

// Lexicon is an offline phrase-table translator. It covers a small set
// of common English phrases so the demo and tests work without any
// network backend. Unknown phrases fail rather than guess.
type Lexicon struct {
	phrases map[string]map[string]string
}

// NewLexicon creates the built-in phrase-table translator.
func NewLexicon() *Lexicon {
	return &Lexicon{phrases: builtinPhrases}
}

// builtinPhrases maps a normalized English phrase to its translation
// per target language code. English is handled as identity.
var builtinPhrases = map[string]map[string]string{
	"hello": {
		"es": "Hola", "it": "Ciao", "fr": "Bonjour", "ca": "Hola",
	},
	"good morning": {
		"es": "Buenos días", "it": "Buongiorno", "fr": "Bonjour", "ca": "Bon dia",
	},
	"good night": {
		"es": "Buenas noches", "it": "Buonanotte", "fr": "Bonne nuit", "ca": "Bona nit",
	},
	"goodbye": {
		"es": "Adiós", "it": "Arrivederci", "fr": "Au revoir", "ca": "Adeu",
	},
	"thank you": {
		"es": "Gracias", "it": "Grazie", "fr": "Merci", "ca": "Gràcies",
	},
	"please": {
		"es": "Por favor", "it": "Per favore", "fr": "S'il vous plaît", "ca": "Si us plau",
	},
	"how are you": {
		"es": "¿Cómo estás?", "it": "Come stai?", "fr": "Comment ça va?", "ca": "Com estàs?",
	},
	"yes": {
		"es": "Sí", "it": "Sì", "fr": "Oui", "ca": "Sí",
	},
	"no": {
		"es": "No", "it": "No", "fr": "Non", "ca": "No",
	},
	"welcome": {
		"es": "Bienvenido", "it": "Benvenuto", "fr": "Bienvenue", "ca": "Benvingut",
	},
	"see you tomorrow": {
		"es": "Hasta mañana", "it": "A domani", "fr": "À demain", "ca": "Fins demà",
	},
	"where is the station": {
		"es": "¿Dónde está la estación?", "it": "Dov'è la stazione?",
		"fr": "Où est la gare?", "ca": "On és l'estació?",
	},
}

// Translate looks the sentence up in the phrase table.
func (l *Lexicon) Translate(_ context.Context, req pipeline.TranslationRequest) (pipeline.TranslationResult, error) {
	if req.Target.Code == "en" {
		return pipeline.TranslationResult{
			TranslatedText: req.SourceText,
			Target:         req.Target,
		}, nil
	}

	// Misses are deterministic, so they carry a non-retryable sentinel.
	key := normalizePhrase(req.SourceText)
	entry, ok := l.phrases[key]
	if !ok {
		return pipeline.TranslationResult{}, fmt.Errorf(
			"%w: %q (use the openai engine for arbitrary text)",
			pipeline.ErrPhraseNotFound, req.SourceText)
	}
	out, ok := entry[req.Target.Code]
	if !ok {
		return pipeline.TranslationResult{}, fmt.Errorf(
			"%w: no %s entry for %q", pipeline.ErrPhraseNotFound, req.Target.Code, req.SourceText)
	}
	return pipeline.TranslationResult{TranslatedText: out, Target: req.Target}, nil
}

// normalizePhrase lowercases and strips surrounding punctuation so
// "Hello!" and "hello" hit the same entry.
func normalizePhrase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return strings.Join(strings.Fields(s), " ")
}
