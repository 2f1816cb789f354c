package book

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extracted is the result of parsing an ebook file.
type Extracted struct {
	Title    string
	Author   string
	Format   string
	FileSize int64
	Chapters []Chapter
}

// Extract parses a book file into ordered chapters of paragraphs.
// Plain text and markdown are supported; richer formats come from
// external extractors that feed the same Chapter shape.
func Extract(path string) (*Extracted, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat book file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read book file: %w", err)
	}
	content := strings.ReplaceAll(string(data), "\r\n", "\n")

	ext := strings.ToLower(filepath.Ext(path))
	ret := &Extracted{
		Title:    titleFromPath(path),
		FileSize: info.Size(),
	}

	switch ext {
	case ".md", ".markdown":
		ret.Format = "markdown"
		ret.Chapters = splitMarkdown(content)
	case ".txt", "":
		ret.Format = "txt"
		ret.Chapters = []Chapter{{
			Index:      0,
			Title:      ret.Title,
			Paragraphs: splitParagraphs(content),
		}}
	default:
		return nil, fmt.Errorf("unsupported book format: %s", ext)
	}

	return ret, nil
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}

// splitParagraphs splits text on blank lines, joining wrapped lines inside a
// paragraph with single spaces.
func splitParagraphs(content string) []string {
	blocks := strings.Split(content, "\n\n")
	paragraphs := make([]string, 0, len(blocks))
	for _, block := range blocks {
		lines := strings.Split(block, "\n")
		trimmed := make([]string, 0, len(lines))
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line != "" {
				trimmed = append(trimmed, line)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		paragraphs = append(paragraphs, strings.Join(trimmed, " "))
	}
	return paragraphs
}

// splitMarkdown splits a markdown document into chapters at level-1/level-2
// headings. Content before the first heading becomes chapter 0.
func splitMarkdown(content string) []Chapter {
	lines := strings.Split(content, "\n")

	var chapters []Chapter
	currentTitle := ""
	var currentBody []string

	flush := func() {
		body := strings.Join(currentBody, "\n")
		paragraphs := splitParagraphs(body)
		if len(paragraphs) == 0 && currentTitle == "" {
			return
		}
		chapters = append(chapters, Chapter{
			Index:      len(chapters),
			Title:      currentTitle,
			Paragraphs: paragraphs,
		})
	}

	for _, line := range lines {
		if heading, ok := markdownHeading(line); ok {
			if len(currentBody) > 0 || currentTitle != "" {
				flush()
			}
			currentTitle = heading
			currentBody = nil
			continue
		}
		currentBody = append(currentBody, line)
	}
	flush()

	if len(chapters) == 0 {
		chapters = []Chapter{{Index: 0, Title: "", Paragraphs: nil}}
	}
	return chapters
}

func markdownHeading(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, prefix := range []string{"## ", "# "} {
		if strings.HasPrefix(trimmed, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, prefix)), true
		}
	}
	return "", false
}
