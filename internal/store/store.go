package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/repository"
	"github.com/safar/go-bookstore/internal/uow"
)

// querier is satisfied by *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type Factory struct {
	db     *sql.DB
	opts   database.TxOptions
	logger *log.Entry
}

func NewFactory(db *sql.DB, opts database.TxOptions, logger *log.Entry) *Factory {
	return &Factory{db: db, opts: opts, logger: logger.WithField("component", "store")}
}

// New pins one pooled connection for the life of the UnitOfWork.
func (f *Factory) New(ctx context.Context) (repository.UnitOfWork, error) {
	conn, err := f.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	u := &UnitOfWork{
		conn:    conn,
		opts:    f.opts,
		logger:  f.logger,
		session: uow.NewSession[querier](),
	}
	u.books = &bookRepository{u: u, cache: uow.NewIdentityMap[*domain.Book](u.session)}
	u.customers = &customerRepository{u: u, cache: uow.NewIdentityMap[*domain.Customer](u.session)}
	u.orders = &orderRepository{u: u, cache: uow.NewIdentityMap[*domain.Order](u.session)}
	return u, nil
}

type UnitOfWork struct {
	conn    *sql.Conn
	tx      *sql.Tx
	opts    database.TxOptions
	logger  *log.Entry
	session *uow.Session[querier]

	books     *bookRepository
	customers *customerRepository
	orders    *orderRepository
}

func (u *UnitOfWork) Books() repository.BookRepository         { return u.books }
func (u *UnitOfWork) Customers() repository.CustomerRepository { return u.customers }
func (u *UnitOfWork) Orders() repository.OrderRepository       { return u.orders }
func (u *UnitOfWork) InTransaction() bool                      { return u.tx != nil }

func (u *UnitOfWork) q() querier {
	if u.tx != nil {
		return u.tx
	}
	return u.conn
}

// forUpdate locks loaded aggregate rows while a transaction is open.
func (u *UnitOfWork) forUpdate() string {
	if u.tx != nil {
		return " FOR UPDATE"
	}
	return ""
}

func (u *UnitOfWork) BeginTransaction(ctx context.Context) error {
	if u.tx != nil {
		return nil
	}

	tx, err := u.conn.BeginTx(ctx, &sql.TxOptions{
		Isolation: u.opts.IsolationLevel,
		ReadOnly:  u.opts.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	tx := u.tx
	u.tx = nil
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		u.session.Reset()
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	tx := u.tx
	u.tx = nil
	u.session.Reset()
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// SaveChanges writes queued changes in the open transaction, or in a
// retried implicit one when none is open.
func (u *UnitOfWork) SaveChanges(ctx context.Context) (int, error) {
	if u.session.Pending() == 0 {
		return 0, nil
	}

	if u.tx != nil {
		n, err := u.session.Flush(ctx, u.tx)
		if err != nil {
			return n, constraint(err)
		}
		u.session.Accept()
		return n, nil
	}

	var n int
	err := database.WithRetry(ctx, u.conn, u.opts, func(tx *sql.Tx) error {
		var err error
		n, err = u.session.Flush(ctx, tx)
		return err
	})
	if err != nil {
		return 0, constraint(err)
	}
	u.session.Accept()
	return n, nil
}

func (u *UnitOfWork) Close() error {
	if u.conn == nil {
		return nil
	}

	if u.tx != nil {
		if err := u.Rollback(context.Background()); err != nil {
			u.logger.WithError(err).Warn("rollback on close failed")
		}
	}

	err := u.conn.Close()
	u.conn = nil
	if err != nil {
		return fmt.Errorf("release connection: %w", err)
	}
	return nil
}

// constraint tags integrity violations with the matching repository error.
func constraint(err error) error {
	switch {
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", repository.ErrDuplicateKey, err)
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %w", repository.ErrReferenceViolation, err)
	}
	return err
}

func rowsAffected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
