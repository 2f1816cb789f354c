package book

import (
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// Sampling more paragraphs than this buys no accuracy.
const detectSampleSize = 40

// DetectLanguage guesses the dominant language of a book from its opening
// paragraphs by majority vote per paragraph.
func DetectLanguage(chapters []Chapter) language.Tag {
	langMap := make(map[string]int)
	sampled := 0

	for _, ch := range chapters {
		for _, p := range ch.Paragraphs {
			if sampled >= detectSampleSize {
				break
			}
			if len(p) < 20 {
				continue
			}
			lang := whatlanggo.DetectLang(p).Iso6391()
			if lang == "" {
				continue
			}
			langMap[lang]++
			sampled++
		}
	}

	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount {
			topLang = lang
			topCount = count
		}
	}

	if topLang == "" {
		return language.Und
	}
	return language.Make(topLang)
}
