package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/repository"
	"github.com/safar/go-bookstore/internal/uow"
)

var (
	ErrDuplicateKey = repository.ErrDuplicateKey
	ErrReferenced   = fmt.Errorf("row is still referenced: %w", repository.ErrReferenceViolation)
	ErrMissingRef   = fmt.Errorf("referenced row does not exist: %w", repository.ErrReferenceViolation)
)

type record[S any] struct {
	state   S
	version int
}

type tables struct {
	books     map[string]record[domain.BookState]
	customers map[string]record[domain.CustomerState]
	orders    map[string]record[domain.OrderState]
}

func newTables() *tables {
	return &tables{
		books:     make(map[string]record[domain.BookState]),
		customers: make(map[string]record[domain.CustomerState]),
		orders:    make(map[string]record[domain.OrderState]),
	}
}

// clone copies the maps; states are values, and order item slices are never
// mutated in place.
func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.books {
		c.books[k] = v
	}
	for k, v := range t.customers {
		c.customers[k] = v
	}
	for k, v := range t.orders {
		c.orders[k] = v
	}
	return c
}

// Store is an in-process database shared by every UnitOfWork it creates.
// A transaction holds the write lock until it commits or rolls back.
type Store struct {
	mu   sync.RWMutex
	data *tables
}

func NewStore() *Store {
	return &Store{data: newTables()}
}

func (s *Store) New(ctx context.Context) (repository.UnitOfWork, error) {
	u := &UnitOfWork{
		store:   s,
		session: uow.NewSession[*tables](),
	}
	u.books = &bookRepository{u: u, cache: uow.NewIdentityMap[*domain.Book](u.session)}
	u.customers = &customerRepository{u: u, cache: uow.NewIdentityMap[*domain.Customer](u.session)}
	u.orders = &orderRepository{u: u, cache: uow.NewIdentityMap[*domain.Order](u.session)}
	return u, nil
}

// Ping reports the store as always reachable.
func (s *Store) Ping(ctx context.Context) error { return nil }

type UnitOfWork struct {
	store   *Store
	work    *tables
	session *uow.Session[*tables]
	closed  bool

	books     *bookRepository
	customers *customerRepository
	orders    *orderRepository
}

func (u *UnitOfWork) Books() repository.BookRepository         { return u.books }
func (u *UnitOfWork) Customers() repository.CustomerRepository { return u.customers }
func (u *UnitOfWork) Orders() repository.OrderRepository       { return u.orders }
func (u *UnitOfWork) InTransaction() bool                      { return u.work != nil }

// read runs fn against the transaction copy, or the shared data under a read lock.
func (u *UnitOfWork) read(fn func(t *tables) error) error {
	if u.closed {
		return errors.New("unit of work is closed")
	}
	if u.work != nil {
		return fn(u.work)
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	return fn(u.store.data)
}

func (u *UnitOfWork) BeginTransaction(ctx context.Context) error {
	if u.closed {
		return errors.New("unit of work is closed")
	}
	if u.work != nil {
		return nil
	}
	u.store.mu.Lock()
	u.work = u.store.data.clone()
	return nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.work == nil {
		return nil
	}
	u.store.data = u.work
	u.work = nil
	u.store.mu.Unlock()
	return nil
}

func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.work == nil {
		return nil
	}
	u.work = nil
	u.session.Reset()
	u.store.mu.Unlock()
	return nil
}

func (u *UnitOfWork) SaveChanges(ctx context.Context) (int, error) {
	if u.closed {
		return 0, errors.New("unit of work is closed")
	}
	if u.session.Pending() == 0 {
		return 0, nil
	}

	if u.work != nil {
		n, err := u.session.Flush(ctx, u.work)
		if err != nil {
			return n, err
		}
		u.session.Accept()
		return n, nil
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	work := u.store.data.clone()
	n, err := u.session.Flush(ctx, work)
	if err != nil {
		return 0, err
	}
	u.store.data = work
	u.session.Accept()
	return n, nil
}

func (u *UnitOfWork) Close() error {
	if u.closed {
		return nil
	}
	err := u.Rollback(context.Background())
	u.closed = true
	return err
}
