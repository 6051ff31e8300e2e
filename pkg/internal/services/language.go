package services

import (
	"sync"

	"github.com/pemistahl/lingua-go"
)

var languageDetector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English,
			lingua.Spanish,
			lingua.Portuguese,
			lingua.French,
			lingua.German,
			lingua.Japanese,
			lingua.Chinese,
		).
		WithLowAccuracyMode().
		Build()
})

// DetectLanguage guesses the language of a post so clients can offer
// translation; an undecidable text maps to the empty string.
func DetectLanguage(content string) string {
	if len(content) == 0 {
		return ""
	}
	if language, ok := languageDetector().DetectLanguageOf(content); ok {
		return language.IsoCode639_1().String()
	}
	return ""
}
