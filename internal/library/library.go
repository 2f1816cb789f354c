package library

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bookworm/internal/book"
	"bookworm/pkg/log"
)

// Store is the persistence surface the library needs.
type Store interface {
	UpsertBook(ctx context.Context, b book.Book) error
	DeleteBook(ctx context.Context, bookID string) error
	GetBook(ctx context.Context, bookID string) (book.Book, bool, error)
	GetBookByPath(ctx context.Context, filePath string) (book.Book, bool, error)
	ListBooks(ctx context.Context, orderBy string) ([]book.Book, error)
	SearchBooks(ctx context.Context, query string) ([]book.Book, error)
	TouchLastRead(ctx context.Context, bookID string) error
	SaveProgress(ctx context.Context, p book.ReadingProgress) error
	GetProgress(ctx context.Context, bookID string) (book.ReadingProgress, bool, error)
	AddBookmark(ctx context.Context, bm book.Bookmark) error
	DeleteBookmark(ctx context.Context, bookmarkID string) error
	ListBookmarks(ctx context.Context, bookID string) ([]book.Bookmark, error)
}

// Library manages the book collection on top of the persistent store.
type Library struct {
	store Store
}

func New(store Store) *Library {
	return &Library{store: store}
}

// AddBook imports a book file into the library. Re-adding a path that is
// already present returns the existing record unchanged.
func (l *Library) AddBook(ctx context.Context, path string) (book.Book, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return book.Book{}, fmt.Errorf("resolve book path: %w", err)
	}

	if existing, ok, err := l.store.GetBookByPath(ctx, absPath); err != nil {
		return book.Book{}, err
	} else if ok {
		log.Info("Book already in library: %s (%s)", existing.Title, existing.ID)
		return existing, nil
	}

	extracted, err := book.Extract(absPath)
	if err != nil {
		return book.Book{}, err
	}

	lang := book.DetectLanguage(extracted.Chapters)

	b := book.Book{
		ID:            uuid.NewString(),
		FilePath:      absPath,
		Title:         extracted.Title,
		Author:        extracted.Author,
		Format:        extracted.Format,
		Language:      lang.String(),
		FileSize:      extracted.FileSize,
		TotalChapters: len(extracted.Chapters),
		AddedAt:       time.Now().UTC(),
	}
	if err := l.store.UpsertBook(ctx, b); err != nil {
		return book.Book{}, err
	}

	log.Info("Added book %s (%s, %d chapters, language %s)", b.Title, b.ID, b.TotalChapters, b.Language)
	return b, nil
}

func (l *Library) RemoveBook(ctx context.Context, bookID string) error {
	return l.store.DeleteBook(ctx, bookID)
}

func (l *Library) Get(ctx context.Context, bookID string) (book.Book, error) {
	b, ok, err := l.store.GetBook(ctx, bookID)
	if err != nil {
		return book.Book{}, err
	}
	if !ok {
		return book.Book{}, fmt.Errorf("book %s not found", bookID)
	}
	return b, nil
}

func (l *Library) List(ctx context.Context, orderBy string) ([]book.Book, error) {
	return l.store.ListBooks(ctx, orderBy)
}

func (l *Library) Search(ctx context.Context, query string) ([]book.Book, error) {
	return l.store.SearchBooks(ctx, query)
}

// Source re-extracts a book's chapters from its file so the translation
// engine can walk them. Extraction is deterministic, so unit positions
// match the ones recorded at add time.
func (l *Library) Source(ctx context.Context, bookID string) (book.UnitSource, error) {
	b, err := l.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	extracted, err := book.Extract(b.FilePath)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", b.FilePath, err)
	}
	return book.NewSource(b.ID, extracted.Chapters), nil
}

// Reading progress

func (l *Library) SaveProgress(ctx context.Context, p book.ReadingProgress) error {
	p.UpdatedAt = time.Now().UTC()
	if err := l.store.SaveProgress(ctx, p); err != nil {
		return err
	}
	return l.store.TouchLastRead(ctx, p.BookID)
}

func (l *Library) Progress(ctx context.Context, bookID string) (book.ReadingProgress, bool, error) {
	return l.store.GetProgress(ctx, bookID)
}

// Bookmarks

func (l *Library) AddBookmark(ctx context.Context, bookID string, chapterIndex, scrollOffset int, label string) (book.Bookmark, error) {
	bm := book.Bookmark{
		ID:           uuid.NewString(),
		BookID:       bookID,
		ChapterIndex: chapterIndex,
		ScrollOffset: scrollOffset,
		Label:        label,
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.store.AddBookmark(ctx, bm); err != nil {
		return book.Bookmark{}, err
	}
	return bm, nil
}

func (l *Library) RemoveBookmark(ctx context.Context, bookmarkID string) error {
	return l.store.DeleteBookmark(ctx, bookmarkID)
}

func (l *Library) Bookmarks(ctx context.Context, bookID string) ([]book.Bookmark, error) {
	return l.store.ListBookmarks(ctx, bookID)
}
