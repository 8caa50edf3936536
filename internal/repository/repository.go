package repository

import (
	"context"
	"errors"
	"time"

	"github.com/safar/go-bookstore/internal/domain"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrConcurrencyConflict = errors.New("record was modified concurrently")
	ErrNoTransaction       = errors.New("no transaction in progress")

	// SaveChanges wraps storage constraint failures in these.
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrReferenceViolation = errors.New("reference violation")
)

// Reads return ErrNotFound when nothing matches. Add, Update and Delete are
// applied by UnitOfWork.SaveChanges.
type BookRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Book, error)
	GetAll(ctx context.Context) ([]*domain.Book, error)
	GetByCategory(ctx context.Context, category domain.BookCategory) ([]*domain.Book, error)
	GetByStatus(ctx context.Context, status domain.BookStatus) ([]*domain.Book, error)
	Search(ctx context.Context, term string) ([]*domain.Book, error)
	Add(ctx context.Context, book *domain.Book) error
	Update(ctx context.Context, book *domain.Book) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)
}

type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetAll(ctx context.Context) ([]*domain.Customer, error)
	GetByStatus(ctx context.Context, status domain.CustomerStatus) ([]*domain.Customer, error)
	Add(ctx context.Context, customer *domain.Customer) error
	Update(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetAll(ctx context.Context) ([]*domain.Order, error)
	GetByCustomerID(ctx context.Context, customerID string) ([]*domain.Order, error)
	GetByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error)
	// GetByDateRange is inclusive on both ends.
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.Order, error)
	Add(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	ExistsWithBook(ctx context.Context, bookID string) (bool, error)
}

// UnitOfWork groups repository writes under one transaction. A UnitOfWork is
// not safe for concurrent use.
type UnitOfWork interface {
	Books() BookRepository
	Customers() CustomerRepository
	Orders() OrderRepository

	// BeginTransaction is a no-op when a transaction is already open.
	BeginTransaction(ctx context.Context) error
	// Commit rolls back and returns the error if the commit fails.
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	SaveChanges(ctx context.Context) (int, error)
	InTransaction() bool

	// Close releases the underlying connection and rolls back an open transaction.
	Close() error
}

type Factory interface {
	New(ctx context.Context) (UnitOfWork, error)
}

type FactoryFunc func(ctx context.Context) (UnitOfWork, error)

func (f FactoryFunc) New(ctx context.Context) (UnitOfWork, error) { return f(ctx) }
