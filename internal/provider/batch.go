package provider

import (
	"fmt"
	"strings"
)

// batchSeparator delimits paragraphs inside one prompt. Source paragraphs are
// single-line after extraction, so a bare separator line never occurs in
// legitimate content.
const batchSeparator = "\n---\n"

// batchSystemPrompt instructs the model to keep order and count; the response
// is validated against both anyway.
func batchSystemPrompt(count int, targetLang string) string {
	var b strings.Builder
	b.WriteString("You are a professional translator. ")
	b.WriteString(fmt.Sprintf("Translate each paragraph to %s. ", targetLang))
	b.WriteString("Paragraphs are separated by a line containing only '---'. ")
	b.WriteString("Output the translations in the same order, separated by the same '---' lines. ")
	b.WriteString(fmt.Sprintf("Output exactly %d translated paragraphs. ", count))
	b.WriteString("Preserve the original meaning, tone, and style. ")
	b.WriteString("Only output translations, no explanations.")
	return b.String()
}

func joinBatch(texts []string) string {
	return strings.Join(texts, batchSeparator)
}

// splitBatch parses a model response back into segments and enforces the
// count contract. A mismatch is a Malformed failure, never a zip onto the
// wrong units.
func splitBatch(providerID, content string, want int) ([]string, error) {
	var segments []string
	var current []string

	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "---" {
			segments = append(segments, strings.TrimSpace(strings.Join(current, "\n")))
			current = nil
			continue
		}
		current = append(current, line)
	}
	segments = append(segments, strings.TrimSpace(strings.Join(current, "\n")))

	if len(segments) != want {
		return nil, newError(KindMalformed, providerID,
			fmt.Sprintf("segment count mismatch: want %d, got %d", want, len(segments)))
	}
	return segments, nil
}

func batchChars(texts []string) int {
	total := 0
	for _, t := range texts {
		total += len(t)
	}
	return total
}
