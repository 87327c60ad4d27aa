package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// localeVars are consulted in POSIX precedence order when no language is configured.
var localeVars = []string{"LC_ALL", "LC_MESSAGES", "LANG"}

// ResolveLanguage returns the language used for recognition and synthesis.
// An explicit speech.language wins; otherwise the process locale is used,
// falling back to English when the locale is unset or "C".
func (c *SpeechConfig) ResolveLanguage(getenv func(string) string) (language.Tag, error) {
	if c.Language != "" {
		tag, err := language.Parse(c.Language)
		if err != nil {
			return language.Und, fmt.Errorf("parsing speech.language %q: %w", c.Language, err)
		}
		return tag, nil
	}

	for _, name := range localeVars {
		if tag, ok := parseLocale(getenv(name)); ok {
			return tag, nil
		}
	}

	return language.English, nil
}

// parseLocale converts a POSIX locale such as "de_DE.UTF-8@euro" into a tag.
func parseLocale(v string) (language.Tag, bool) {
	if v == "" || v == "C" || v == "POSIX" {
		return language.Und, false
	}

	v, _, _ = strings.Cut(v, ".")
	v, _, _ = strings.Cut(v, "@")

	tag, err := language.Parse(strings.ReplaceAll(v, "_", "-"))
	if err != nil {
		return language.Und, false
	}

	return tag, true
}

// BaseLanguage returns the two-letter code whisper expects, e.g. "en" for en-US.
func BaseLanguage(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
