// Package detector identifies the language of round-tripped questions.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// minDetectLength is the rune count below which detection is not attempted.
// Very short questions ("Who?") produce unreliable guesses.
const minDetectLength = 8

// LanguageDetector is satisfied by *Detector; the probe accepts a nil one.
type LanguageDetector interface {
	DetectISO(text string) (string, bool)
}

// Detector wraps a lingua detector. Building one loads language models and
// is slow, so a single instance should be shared.
type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

// DetectISO returns the lower-case ISO 639-1 code of text's language.
func (d *Detector) DetectISO(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minDetectLength {
		return "", false
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// IsLanguage reports whether text was detected as lang. The second result
// is false when no decision could be made.
func IsLanguage(d LanguageDetector, text, lang string) (match, decided bool) {
	if d == nil {
		return false, false
	}
	code, ok := d.DetectISO(text)
	if !ok {
		return false, false
	}
	return strings.EqualFold(code, lang), true
}
