// Package lang holds the supported-language registry and normalizes
// user-supplied language names into canonical codes.
package lang

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Language describes a single supported target language.
type Language struct {
	// Code is the canonical short code, e.g. "es".
	Code string

	// Name is the English display name, e.g. "spanish".
	Name string

	// Tag is the parsed BCP 47 tag for the canonical code.
	Tag language.Tag

	// Voice is the default synthesis voice identifier.
	Voice string
}

// String returns the canonical code.
func (l Language) String() string { return l.Code }

// IsZero reports whether the language is the zero value.
func (l Language) IsZero() bool { return l.Code == "" }

// supported is the registry of languages the pipeline can target.
// Kept small on purpose: every entry has been exercised against the
// synthesis backends.
var supported = []Language{
	{Code: "en", Name: "english", Tag: language.English, Voice: "en-GB-standard"},
	{Code: "it", Name: "italian", Tag: language.Italian, Voice: "it-IT-standard"},
	{Code: "es", Name: "spanish", Tag: language.Spanish, Voice: "es-ES-standard"},
	{Code: "ca", Name: "catalan", Tag: language.Catalan, Voice: "ca-ES-standard"},
	{Code: "fr", Name: "french", Tag: language.French, Voice: "fr-FR-standard"},
}

// aliases maps spellings that are neither a name nor a code onto a
// canonical code.
var aliases = map[string]string{
	"british english":  "en",
	"us english":       "en",
	"castilian":        "es",
	"español":          "es",
	"francais":         "fr",
	"français":         "fr",
	"italiano":         "it",
	"català":           "ca",
	"castellano":       "es",
	"en-gb":            "en",
	"en-us":            "en",
	"es-es":            "es",
	"it-it":            "it",
	"fr-fr":            "fr",
	"ca-es":            "ca",
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9\-]+`)

// Resolve maps a user-supplied language string (name, alias, or code,
// any casing) to a supported Language. The boolean is false when the
// input does not resolve to a supported language.
func Resolve(input string) (Language, bool) {
	key := strings.ToLower(strings.TrimSpace(input))
	if key == "" {
		return Language{}, false
	}

	if code, ok := aliases[key]; ok {
		key = code
	}

	for _, l := range supported {
		if key == l.Code || key == l.Name {
			return l, true
		}
	}

	// Fall back to BCP 47 parsing so inputs like "es-MX" or "EN" still
	// land on a supported base language.
	clean := nonAlnum.ReplaceAllString(key, "")
	if clean == "" {
		return Language{}, false
	}
	tag, err := language.Parse(clean)
	if err != nil {
		return Language{}, false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return Language{}, false
	}
	for _, l := range supported {
		if base.String() == l.Code {
			return l, true
		}
	}
	return Language{}, false
}

// Supported returns the registry in display order.
func Supported() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

// SupportedNames returns the sorted display names, for shell
// completion and help output.
func SupportedNames() []string {
	names := make([]string, 0, len(supported))
	for _, l := range supported {
		names = append(names, l.Name)
	}
	sort.Strings(names)
	return names
}

// Describe formats the supported set as "english (en), ...".
func Describe() string {
	parts := make([]string, 0, len(supported))
	for _, l := range supported {
		parts = append(parts, fmt.Sprintf("%s (%s)", l.Name, l.Code))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
