package persistence

import (
	"context"
	"database/sql"
	"time"

	"bookworm/internal/book"
)

// Books

func (s *Store) UpsertBook(ctx context.Context, b book.Book) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO books (
			id, file_path, title, author, format, language, file_size, total_chapters, added_at, last_read_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_path=excluded.file_path,
			title=excluded.title,
			author=excluded.author,
			format=excluded.format,
			language=excluded.language,
			file_size=excluded.file_size,
			total_chapters=excluded.total_chapters,
			last_read_at=excluded.last_read_at`,
		b.ID,
		b.FilePath,
		b.Title,
		b.Author,
		b.Format,
		b.Language,
		b.FileSize,
		b.TotalChapters,
		b.AddedAt,
		b.LastReadAt,
	)
	return err
}

func (s *Store) DeleteBook(ctx context.Context, bookID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, bookID)
	return err
}

func (s *Store) GetBook(ctx context.Context, bookID string) (book.Book, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, bookID)
	return scanBook(row)
}

func (s *Store) GetBookByPath(ctx context.Context, filePath string) (book.Book, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE file_path = ?`, filePath)
	return scanBook(row)
}

var listBookOrderings = map[string]string{
	"":           "last_read_at DESC",
	"last_read":  "last_read_at DESC",
	"title":      "title ASC",
	"author":     "author ASC",
	"added":      "added_at DESC",
}

// ListBooks returns library books in the named ordering; unknown orderings
// fall back to most recently read.
func (s *Store) ListBooks(ctx context.Context, orderBy string) ([]book.Book, error) {
	ordering, ok := listBookOrderings[orderBy]
	if !ok {
		ordering = listBookOrderings[""]
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY `+ordering+` NULLS LAST`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (s *Store) SearchBooks(ctx context.Context, query string) ([]book.Book, error) {
	q := "%" + query + "%"
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+bookColumns+` FROM books
		 WHERE title LIKE ? OR author LIKE ?
		 ORDER BY last_read_at DESC NULLS LAST`,
		q, q,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (s *Store) TouchLastRead(ctx context.Context, bookID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE books SET last_read_at = ? WHERE id = ?`, time.Now().UTC(), bookID)
	return err
}

const bookColumns = `id, file_path, title, author, format, language, file_size, total_chapters, added_at, last_read_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookInto(sc rowScanner) (book.Book, error) {
	var b book.Book
	var lastRead sql.NullTime
	if err := sc.Scan(
		&b.ID,
		&b.FilePath,
		&b.Title,
		&b.Author,
		&b.Format,
		&b.Language,
		&b.FileSize,
		&b.TotalChapters,
		&b.AddedAt,
		&lastRead,
	); err != nil {
		return book.Book{}, err
	}
	if lastRead.Valid {
		t := lastRead.Time
		b.LastReadAt = &t
	}
	return b, nil
}

func scanBook(row *sql.Row) (book.Book, bool, error) {
	b, err := scanBookInto(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return book.Book{}, false, nil
		}
		return book.Book{}, false, err
	}
	return b, true, nil
}

func collectBooks(rows *sql.Rows) ([]book.Book, error) {
	ret := make([]book.Book, 0)
	for rows.Next() {
		b, err := scanBookInto(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, b)
	}
	return ret, rows.Err()
}

// Reading progress

func (s *Store) SaveProgress(ctx context.Context, p book.ReadingProgress) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO reading_progress (book_id, chapter_index, scroll_offset, progress_pct, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(book_id) DO UPDATE SET
			chapter_index=excluded.chapter_index,
			scroll_offset=excluded.scroll_offset,
			progress_pct=excluded.progress_pct,
			updated_at=excluded.updated_at`,
		p.BookID,
		p.ChapterIndex,
		p.ScrollOffset,
		p.ProgressPct,
		p.UpdatedAt,
	)
	return err
}

func (s *Store) GetProgress(ctx context.Context, bookID string) (book.ReadingProgress, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT book_id, chapter_index, scroll_offset, progress_pct, updated_at
		 FROM reading_progress WHERE book_id = ?`,
		bookID,
	)
	var p book.ReadingProgress
	if err := row.Scan(&p.BookID, &p.ChapterIndex, &p.ScrollOffset, &p.ProgressPct, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return book.ReadingProgress{}, false, nil
		}
		return book.ReadingProgress{}, false, err
	}
	return p, true, nil
}

// Bookmarks

func (s *Store) AddBookmark(ctx context.Context, bm book.Bookmark) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO bookmarks (id, book_id, chapter_index, scroll_offset, label, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		bm.ID,
		bm.BookID,
		bm.ChapterIndex,
		bm.ScrollOffset,
		bm.Label,
		bm.CreatedAt,
	)
	return err
}

func (s *Store) DeleteBookmark(ctx context.Context, bookmarkID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, bookmarkID)
	return err
}

func (s *Store) ListBookmarks(ctx context.Context, bookID string) ([]book.Bookmark, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, book_id, chapter_index, scroll_offset, label, created_at
		 FROM bookmarks WHERE book_id = ?
		 ORDER BY chapter_index, scroll_offset`,
		bookID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]book.Bookmark, 0)
	for rows.Next() {
		var bm book.Bookmark
		if err := rows.Scan(&bm.ID, &bm.BookID, &bm.ChapterIndex, &bm.ScrollOffset, &bm.Label, &bm.CreatedAt); err != nil {
			return nil, err
		}
		ret = append(ret, bm)
	}
	return ret, rows.Err()
}
