package book

import (
	"time"

	"golang.org/x/text/language"
)

// Book is a library record for a single ebook file.
type Book struct {
	ID            string     `json:"id"`
	FilePath      string     `json:"file_path"`
	Title         string     `json:"title"`
	Author        string     `json:"author"`
	Format        string     `json:"format"`
	Language      string     `json:"language"`
	FileSize      int64      `json:"file_size"`
	TotalChapters int        `json:"total_chapters"`
	AddedAt       time.Time  `json:"added_at"`
	LastReadAt    *time.Time `json:"last_read_at,omitempty"`
}

// Chapter is an ordered run of translatable paragraphs.
type Chapter struct {
	Index      int      `json:"index"`
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
}

// Unit is the smallest independently translatable piece of book text,
// addressed by its position in the document.
type Unit struct {
	BookID       string
	ChapterIndex int
	UnitIndex    int
	Text         string
}

// UnitSource yields a book's chapters in document order. Format parsers and
// test fixtures implement it; the translation engine only ever reads from it.
type UnitSource interface {
	BookID() string
	Chapters() []Chapter
}

// ReadingProgress tracks where the reader last stopped in a book.
type ReadingProgress struct {
	BookID       string    `json:"book_id"`
	ChapterIndex int       `json:"chapter_index"`
	ScrollOffset int       `json:"scroll_offset"`
	ProgressPct  float64   `json:"progress_pct"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Bookmark is a named position inside a book.
type Bookmark struct {
	ID           string    `json:"id"`
	BookID       string    `json:"book_id"`
	ChapterIndex int       `json:"chapter_index"`
	ScrollOffset int       `json:"scroll_offset"`
	Label        string    `json:"label"`
	CreatedAt    time.Time `json:"created_at"`
}

// Units flattens a source's chapters into ordered units, skipping nothing:
// positions must stay stable across invocations for fingerprints to line up.
func Units(src UnitSource) []Unit {
	var units []Unit
	for _, ch := range src.Chapters() {
		for i, p := range ch.Paragraphs {
			units = append(units, Unit{
				BookID:       src.BookID(),
				ChapterIndex: ch.Index,
				UnitIndex:    i,
				Text:         p,
			})
		}
	}
	return units
}

// memorySource is a UnitSource backed by already-extracted chapters.
type memorySource struct {
	bookID   string
	chapters []Chapter
}

func (s *memorySource) BookID() string      { return s.bookID }
func (s *memorySource) Chapters() []Chapter { return s.chapters }

// NewSource wraps extracted chapters in a UnitSource.
func NewSource(bookID string, chapters []Chapter) UnitSource {
	return &memorySource{bookID: bookID, chapters: chapters}
}

// Tag parses a stored language code, falling back to Und.
func Tag(code string) language.Tag {
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und
	}
	return tag
}
