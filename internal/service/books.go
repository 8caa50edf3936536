package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/repository"
)

type CreateBookCommand struct {
	Title         string              `json:"title"`
	Author        string              `json:"author"`
	ISBN          string              `json:"isbn"`
	Description   string              `json:"description"`
	Price         decimal.Decimal     `json:"price"`
	StockQuantity int                 `json:"stock_quantity"`
	Category      domain.BookCategory `json:"category"`
	PublishedDate time.Time           `json:"published_date"`
	Publisher     string              `json:"publisher"`
	Pages         int                 `json:"pages"`
}

type UpdateBookCommand struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Author        string              `json:"author"`
	Description   string              `json:"description"`
	Price         decimal.Decimal     `json:"price"`
	StockQuantity int                 `json:"stock_quantity"`
	Category      domain.BookCategory `json:"category"`
	Publisher     string              `json:"publisher"`
	Pages         int                 `json:"pages"`
}

// BookQuery filters the catalog. Zero fields do not filter.
type BookQuery struct {
	Search   string
	Category domain.BookCategory
	Status   domain.BookStatus
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Page     int
	PageSize int
}

func (q BookQuery) match(b *domain.Book) bool {
	switch {
	case q.Category != 0 && b.Category() != q.Category:
		return false
	case q.Status != 0 && b.Status() != q.Status:
		return false
	case q.MinPrice != nil && b.Price().LessThan(*q.MinPrice):
		return false
	case q.MaxPrice != nil && b.Price().GreaterThan(*q.MaxPrice):
		return false
	}
	return true
}

func (s *Service) CreateBook(ctx context.Context, cmd CreateBookCommand) (dto BookDTO, err error) {
	defer s.observe("create_book", time.Now(), &err, log.Fields{"isbn": cmd.ISBN})

	u, err := s.open(ctx)
	if err != nil {
		return BookDTO{}, err
	}
	defer closeUnit(u, s.log)

	taken, err := u.Books().ExistsByISBN(ctx, cmd.ISBN)
	if err != nil {
		return BookDTO{}, err
	}
	if taken {
		return BookDTO{}, isbnTaken(cmd.ISBN)
	}

	book, err := domain.NewBook(domain.NewBookParams{
		Title:         cmd.Title,
		Author:        cmd.Author,
		ISBN:          cmd.ISBN,
		Description:   cmd.Description,
		Price:         cmd.Price,
		StockQuantity: cmd.StockQuantity,
		Category:      cmd.Category,
		PublishedDate: cmd.PublishedDate,
		Publisher:     cmd.Publisher,
		Pages:         cmd.Pages,
	})
	if err != nil {
		return BookDTO{}, err
	}

	if err := u.Books().Add(ctx, book); err != nil {
		return BookDTO{}, err
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		return BookDTO{}, uniqueConflict(err, isbnTaken(cmd.ISBN))
	}
	return toBookDTO(book), nil
}

// UpdateBook replaces the details, price and absolute stock level of a book.
func (s *Service) UpdateBook(ctx context.Context, cmd UpdateBookCommand) (dto BookDTO, err error) {
	defer s.observe("update_book", time.Now(), &err, log.Fields{"book_id": cmd.ID})

	u, err := s.open(ctx)
	if err != nil {
		return BookDTO{}, err
	}
	defer closeUnit(u, s.log)

	book, err := u.Books().GetByID(ctx, cmd.ID)
	if err != nil {
		return BookDTO{}, notFound(err, "Book", cmd.ID)
	}

	if err := book.UpdateDetails(cmd.Title, cmd.Author, cmd.Description, cmd.Category, cmd.Publisher, cmd.Pages); err != nil {
		return BookDTO{}, err
	}
	if err := book.UpdatePrice(cmd.Price); err != nil {
		return BookDTO{}, err
	}
	if err := book.UpdateStock(cmd.StockQuantity); err != nil {
		return BookDTO{}, err
	}

	if err := u.Books().Update(ctx, book); err != nil {
		return BookDTO{}, err
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		return BookDTO{}, err
	}

	s.invalidateBooks(ctx, book.ID())
	return toBookDTO(book), nil
}

// DeleteBook reports false when the book does not exist. Books on any order
// cannot be deleted.
func (s *Service) DeleteBook(ctx context.Context, id string) (deleted bool, err error) {
	defer s.observe("delete_book", time.Now(), &err, log.Fields{"book_id": id})

	u, err := s.open(ctx)
	if err != nil {
		return false, err
	}
	defer closeUnit(u, s.log)

	if _, err := u.Books().GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	referenced, err := u.Orders().ExistsWithBook(ctx, id)
	if err != nil {
		return false, err
	}
	if referenced {
		return false, bookReferenced(id)
	}

	if err := u.Books().Delete(ctx, id); err != nil {
		return false, err
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		return false, err
	}

	s.invalidateBooks(ctx, id)
	return true, nil
}

// GetBookByID reads through the book cache.
func (s *Service) GetBookByID(ctx context.Context, id string) (BookDTO, error) {
	entry := s.log.WithField("book_id", id)
	if dto, ok, err := s.books.Get(ctx, id); err != nil {
		entry.WithError(err).Warn("read cached book")
	} else if ok {
		return dto, nil
	}

	u, err := s.open(ctx)
	if err != nil {
		return BookDTO{}, err
	}
	defer closeUnit(u, s.log)

	book, err := u.Books().GetByID(ctx, id)
	if err != nil {
		return BookDTO{}, notFound(err, "Book", id)
	}

	dto := toBookDTO(book)
	if err := s.books.Set(ctx, id, dto); err != nil {
		entry.WithError(err).Warn("cache book")
	}
	return dto, nil
}

func (s *Service) ListBooks(ctx context.Context, q BookQuery) (repository.OffsetPage[BookDTO], error) {
	u, err := s.open(ctx)
	if err != nil {
		return repository.OffsetPage[BookDTO]{}, err
	}
	defer closeUnit(u, s.log)

	var books []*domain.Book
	switch {
	case q.Search != "":
		books, err = u.Books().Search(ctx, q.Search)
	case q.Category != 0:
		books, err = u.Books().GetByCategory(ctx, q.Category)
	case q.Status != 0:
		books, err = u.Books().GetByStatus(ctx, q.Status)
	default:
		books, err = u.Books().GetAll(ctx)
	}
	if err != nil {
		return repository.OffsetPage[BookDTO]{}, err
	}

	out := make([]BookDTO, 0, len(books))
	for _, b := range books {
		if q.match(b) {
			out = append(out, toBookDTO(b))
		}
	}
	return repository.Paginate(out, q.Page, q.PageSize), nil
}

func isbnTaken(isbn string) error {
	return &domain.ConflictError{Message: fmt.Sprintf("Book with ISBN %s already exists", isbn)}
}

func bookReferenced(id string) error {
	return domain.NewStateConflict("Cannot delete book with ID %s. Book is referenced by existing orders.", id)
}
