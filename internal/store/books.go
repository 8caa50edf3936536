package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/repository"
	"github.com/safar/go-bookstore/internal/uow"
)

const bookColumns = `id, title, author, isbn, description, price, stock_quantity, category,
	published_date, publisher, pages, status, created_at, updated_at, version`

type bookRepository struct {
	u     *UnitOfWork
	cache *uow.IdentityMap[*domain.Book]
}

func bookKey(id string) string { return "book:" + id }

func scanBook(row rowScanner) (*domain.Book, int, error) {
	var (
		s         domain.BookState
		category  int
		status    int
		updatedAt sql.NullTime
		version   int
	)

	err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Author,
		&s.ISBN,
		&s.Description,
		&s.Price,
		&s.StockQuantity,
		&category,
		&s.PublishedDate,
		&s.Publisher,
		&s.Pages,
		&status,
		&s.CreatedAt,
		&updatedAt,
		&version,
	)
	if err != nil {
		return nil, 0, err
	}

	s.Category = domain.BookCategory(category)
	s.Status = domain.BookStatus(status)
	s.UpdatedAt = nullTime(updatedAt)
	return domain.RestoreBook(s), version, nil
}

func (r *bookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	if r.cache.Removed(id) || !validID(id) {
		return nil, repository.ErrNotFound
	}
	if book, ok := r.cache.Get(id); ok {
		return book, nil
	}

	row := r.u.q().QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`+r.u.forUpdate(), id)
	book, version, err := scanBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	r.u.session.Observe(bookKey(id), version)
	r.cache.Put(id, book)
	return book, nil
}

func (r *bookRepository) GetAll(ctx context.Context) ([]*domain.Book, error) {
	return r.list(ctx, "list books", "")
}

func (r *bookRepository) GetByCategory(ctx context.Context, category domain.BookCategory) ([]*domain.Book, error) {
	return r.list(ctx, "list books by category", "WHERE category = $1", int(category))
}

func (r *bookRepository) GetByStatus(ctx context.Context, status domain.BookStatus) ([]*domain.Book, error) {
	return r.list(ctx, "list books by status", "WHERE status = $1", int(status))
}

func (r *bookRepository) Search(ctx context.Context, term string) ([]*domain.Book, error) {
	return r.list(ctx, "search books",
		`WHERE title ILIKE '%' || $1::text || '%' OR author ILIKE '%' || $1::text || '%'`, escapeLike(term))
}

func (r *bookRepository) list(ctx context.Context, op, where string, args ...any) ([]*domain.Book, error) {
	rows, err := r.u.q().QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books `+where+` ORDER BY title, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var (
		ids   []string
		books []*domain.Book
	)
	for rows.Next() {
		book, version, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		r.u.session.Observe(bookKey(book.ID()), version)
		ids = append(ids, book.ID())
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return r.cache.Resolve(ids, books), nil
}

func (r *bookRepository) Add(ctx context.Context, book *domain.Book) error {
	r.cache.Put(book.ID(), book)
	r.u.session.Insert(bookKey(book.ID()), func(ctx context.Context, q querier, _ int) (int64, error) {
		s := book.Snapshot()
		result, err := q.ExecContext(ctx,
			`INSERT INTO books (id, title, author, isbn, description, price, stock_quantity, category,
			                    published_date, publisher, pages, status, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)`,
			s.ID, s.Title, s.Author, s.ISBN, s.Description, s.Price, s.StockQuantity, int(s.Category),
			s.PublishedDate, s.Publisher, s.Pages, int(s.Status), s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("insert book: %w", err)
		}
		return rowsAffected(result)
	})
	return nil
}

func (r *bookRepository) Update(ctx context.Context, book *domain.Book) error {
	r.cache.Put(book.ID(), book)
	r.u.session.Update(bookKey(book.ID()), func(ctx context.Context, q querier, version int) (int64, error) {
		s := book.Snapshot()
		result, err := q.ExecContext(ctx,
			`UPDATE books
			 SET title = $2, author = $3, isbn = $4, description = $5, price = $6,
			     stock_quantity = $7, category = $8, published_date = $9, publisher = $10,
			     pages = $11, status = $12, updated_at = $13, version = version + 1
			 WHERE id = $1 AND ($14 = 0 OR version = $14)`,
			s.ID, s.Title, s.Author, s.ISBN, s.Description, s.Price,
			s.StockQuantity, int(s.Category), s.PublishedDate, s.Publisher,
			s.Pages, int(s.Status), s.UpdatedAt, version)
		if err != nil {
			return 0, fmt.Errorf("update book: %w", err)
		}
		return rowsAffected(result)
	})
	return nil
}

func (r *bookRepository) Delete(ctx context.Context, id string) error {
	r.cache.Remove(id)
	r.u.session.Delete(bookKey(id), func(ctx context.Context, q querier, version int) (int64, error) {
		result, err := q.ExecContext(ctx,
			`DELETE FROM books WHERE id = $1 AND ($2 = 0 OR version = $2)`, id, version)
		if err != nil {
			return 0, fmt.Errorf("delete book: %w", err)
		}
		return rowsAffected(result)
	})
	return nil
}

func (r *bookRepository) Exists(ctx context.Context, id string) (bool, error) {
	if r.cache.Removed(id) || !validID(id) {
		return false, nil
	}
	if _, ok := r.cache.Get(id); ok {
		return true, nil
	}
	return exists(ctx, r.u.q(), "check book exists", `SELECT EXISTS(SELECT 1 FROM books WHERE id = $1)`, id)
}

func (r *bookRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	return exists(ctx, r.u.q(), "check isbn exists", `SELECT EXISTS(SELECT 1 FROM books WHERE isbn = $1)`, isbn)
}

func exists(ctx context.Context, q querier, op, query string, args ...any) (bool, error) {
	var found bool
	if err := q.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return found, nil
}

// validID filters ids that would make PostgreSQL reject the uuid cast.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string { return likeEscaper.Replace(term) }
