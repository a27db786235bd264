package service

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// languageName resolves a Calibre lang code (ISO 639, usually the
// three-letter form like "eng" or "jpn") to its English display name.
// Unrecognized codes pass through unchanged.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return code
	}
	return name
}
