package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/repository"
	"github.com/safar/go-bookstore/internal/uow"
)

const customerColumns = `id, first_name, last_name, email, phone_number, street, city, state, zip_code,
	country, status, registration_date, last_login_date, created_at, updated_at, version`

type customerRepository struct {
	u     *UnitOfWork
	cache *uow.IdentityMap[*domain.Customer]
}

func customerKey(id string) string { return "customer:" + id }

func scanCustomer(row rowScanner) (*domain.Customer, int, error) {
	var (
		s         domain.CustomerState
		status    int
		lastLogin sql.NullTime
		updatedAt sql.NullTime
		version   int
	)

	err := row.Scan(
		&s.ID,
		&s.FirstName,
		&s.LastName,
		&s.Email,
		&s.PhoneNumber,
		&s.Address.Street,
		&s.Address.City,
		&s.Address.State,
		&s.Address.ZipCode,
		&s.Address.Country,
		&status,
		&s.RegistrationDate,
		&lastLogin,
		&s.CreatedAt,
		&updatedAt,
		&version,
	)
	if err != nil {
		return nil, 0, err
	}

	s.Status = domain.CustomerStatus(status)
	s.LastLoginDate = nullTime(lastLogin)
	s.UpdatedAt = nullTime(updatedAt)
	return domain.RestoreCustomer(s), version, nil
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	if r.cache.Removed(id) || !validID(id) {
		return nil, repository.ErrNotFound
	}
	if customer, ok := r.cache.Get(id); ok {
		return customer, nil
	}
	return r.getOne(ctx, "get customer", `WHERE id = $1`, id)
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	customer, err := r.getOne(ctx, "get customer by email", `WHERE email = $1`, email)
	if err != nil {
		return nil, err
	}
	if r.cache.Removed(customer.ID()) {
		return nil, repository.ErrNotFound
	}
	return customer, nil
}

func (r *customerRepository) getOne(ctx context.Context, op, where string, args ...any) (*domain.Customer, error) {
	row := r.u.q().QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers `+where+r.u.forUpdate(), args...)
	customer, version, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cached, ok := r.cache.Get(customer.ID()); ok {
		return cached, nil
	}
	r.u.session.Observe(customerKey(customer.ID()), version)
	r.cache.Put(customer.ID(), customer)
	return customer, nil
}

func (r *customerRepository) GetAll(ctx context.Context) ([]*domain.Customer, error) {
	return r.list(ctx, "list customers", "")
}

func (r *customerRepository) GetByStatus(ctx context.Context, status domain.CustomerStatus) ([]*domain.Customer, error) {
	return r.list(ctx, "list customers by status", "WHERE status = $1", int(status))
}

func (r *customerRepository) list(ctx context.Context, op, where string, args ...any) ([]*domain.Customer, error) {
	rows, err := r.u.q().QueryContext(ctx,
		`SELECT `+customerColumns+` FROM customers `+where+` ORDER BY last_name, first_name, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var (
		ids       []string
		customers []*domain.Customer
	)
	for rows.Next() {
		customer, version, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		r.u.session.Observe(customerKey(customer.ID()), version)
		ids = append(ids, customer.ID())
		customers = append(customers, customer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return r.cache.Resolve(ids, customers), nil
}

func (r *customerRepository) Add(ctx context.Context, customer *domain.Customer) error {
	r.cache.Put(customer.ID(), customer)
	r.u.session.Insert(customerKey(customer.ID()), func(ctx context.Context, q querier, _ int) (int64, error) {
		s := customer.Snapshot()
		result, err := q.ExecContext(ctx,
			`INSERT INTO customers (id, first_name, last_name, email, phone_number, street, city, state,
			                        zip_code, country, status, registration_date, last_login_date,
			                        created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)`,
			s.ID, s.FirstName, s.LastName, s.Email, s.PhoneNumber, s.Address.Street, s.Address.City,
			s.Address.State, s.Address.ZipCode, s.Address.Country, int(s.Status), s.RegistrationDate,
			s.LastLoginDate, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("insert customer: %w", err)
		}
		return rowsAffected(result)
	})
	return nil
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	r.cache.Put(customer.ID(), customer)
	r.u.session.Update(customerKey(customer.ID()), func(ctx context.Context, q querier, version int) (int64, error) {
		s := customer.Snapshot()
		result, err := q.ExecContext(ctx,
			`UPDATE customers
			 SET first_name = $2, last_name = $3, email = $4, phone_number = $5, street = $6,
			     city = $7, state = $8, zip_code = $9, country = $10, status = $11,
			     last_login_date = $12, updated_at = $13, version = version + 1
			 WHERE id = $1 AND ($14 = 0 OR version = $14)`,
			s.ID, s.FirstName, s.LastName, s.Email, s.PhoneNumber, s.Address.Street,
			s.Address.City, s.Address.State, s.Address.ZipCode, s.Address.Country, int(s.Status),
			s.LastLoginDate, s.UpdatedAt, version)
		if err != nil {
			return 0, fmt.Errorf("update customer: %w", err)
		}
		return rowsAffected(result)
	})
	return nil
}

func (r *customerRepository) Delete(ctx context.Context, id string) error {
	r.cache.Remove(id)
	r.u.session.Delete(customerKey(id), func(ctx context.Context, q querier, version int) (int64, error) {
		result, err := q.ExecContext(ctx,
			`DELETE FROM customers WHERE id = $1 AND ($2 = 0 OR version = $2)`, id, version)
		if err != nil {
			return 0, fmt.Errorf("delete customer: %w", err)
		}
		return rowsAffected(result)
	})
	return nil
}

func (r *customerRepository) Exists(ctx context.Context, id string) (bool, error) {
	if r.cache.Removed(id) || !validID(id) {
		return false, nil
	}
	if _, ok := r.cache.Get(id); ok {
		return true, nil
	}
	return exists(ctx, r.u.q(), "check customer exists", `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, id)
}

func (r *customerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return exists(ctx, r.u.q(), "check email exists", `SELECT EXISTS(SELECT 1 FROM customers WHERE email = $1)`, email)
}
