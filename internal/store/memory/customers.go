package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/repository"
	"github.com/safar/go-bookstore/internal/uow"
)

type customerRepository struct {
	u     *UnitOfWork
	cache *uow.IdentityMap[*domain.Customer]
}

func customerKey(id string) string { return "customer:" + id }

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	if r.cache.Removed(id) {
		return nil, repository.ErrNotFound
	}
	if customer, ok := r.cache.Get(id); ok {
		return customer, nil
	}
	return r.getOne(func(s domain.CustomerState) bool { return s.ID == id })
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return r.getOne(func(s domain.CustomerState) bool { return s.Email == email })
}

func (r *customerRepository) getOne(match func(domain.CustomerState) bool) (*domain.Customer, error) {
	customers, err := r.list(match)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, repository.ErrNotFound
	}
	return customers[0], nil
}

func (r *customerRepository) GetAll(ctx context.Context) ([]*domain.Customer, error) {
	return r.list(func(domain.CustomerState) bool { return true })
}

func (r *customerRepository) GetByStatus(ctx context.Context, status domain.CustomerStatus) ([]*domain.Customer, error) {
	return r.list(func(s domain.CustomerState) bool { return s.Status == status })
}

func (r *customerRepository) list(match func(domain.CustomerState) bool) ([]*domain.Customer, error) {
	var states []domain.CustomerState
	err := r.u.read(func(t *tables) error {
		for id, rec := range t.customers {
			if !match(rec.state) {
				continue
			}
			r.u.session.Observe(customerKey(id), rec.version)
			states = append(states, rec.state)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(states, func(i, j int) bool {
		a, b := states[i], states[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})

	ids := make([]string, len(states))
	customers := make([]*domain.Customer, len(states))
	for i, s := range states {
		ids[i] = s.ID
		customers[i] = domain.RestoreCustomer(s)
	}
	return r.cache.Resolve(ids, customers), nil
}

func (r *customerRepository) Add(ctx context.Context, customer *domain.Customer) error {
	r.cache.Put(customer.ID(), customer)
	r.u.session.Insert(customerKey(customer.ID()), func(ctx context.Context, t *tables, _ int) (int64, error) {
		s := customer.Snapshot()
		if _, ok := t.customers[s.ID]; ok {
			return 0, fmt.Errorf("insert customer %s: %w", s.ID, ErrDuplicateKey)
		}
		if emailTaken(t, s.Email, s.ID) {
			return 0, fmt.Errorf("insert customer email %s: %w", s.Email, ErrDuplicateKey)
		}
		t.customers[s.ID] = record[domain.CustomerState]{state: s, version: 1}
		return 1, nil
	})
	return nil
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	r.cache.Put(customer.ID(), customer)
	r.u.session.Update(customerKey(customer.ID()), func(ctx context.Context, t *tables, version int) (int64, error) {
		s := customer.Snapshot()
		rec, ok := t.customers[s.ID]
		if !ok || (version != 0 && rec.version != version) {
			return 0, nil
		}
		if emailTaken(t, s.Email, s.ID) {
			return 0, fmt.Errorf("update customer email %s: %w", s.Email, ErrDuplicateKey)
		}
		t.customers[s.ID] = record[domain.CustomerState]{state: s, version: rec.version + 1}
		return 1, nil
	})
	return nil
}

// Delete cascades to the customer's orders, matching the SQL schema.
func (r *customerRepository) Delete(ctx context.Context, id string) error {
	r.cache.Remove(id)
	r.u.session.Delete(customerKey(id), func(ctx context.Context, t *tables, version int) (int64, error) {
		rec, ok := t.customers[id]
		if !ok || (version != 0 && rec.version != version) {
			return 0, nil
		}
		for orderID, order := range t.orders {
			if order.state.CustomerID == id {
				delete(t.orders, orderID)
			}
		}
		delete(t.customers, id)
		return 1, nil
	})
	return nil
}

func (r *customerRepository) Exists(ctx context.Context, id string) (bool, error) {
	if r.cache.Removed(id) {
		return false, nil
	}
	if _, ok := r.cache.Get(id); ok {
		return true, nil
	}
	var found bool
	err := r.u.read(func(t *tables) error {
		_, found = t.customers[id]
		return nil
	})
	return found, err
}

func (r *customerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var found bool
	err := r.u.read(func(t *tables) error {
		found = emailTaken(t, email, "")
		return nil
	})
	return found, err
}

func emailTaken(t *tables, email, exceptID string) bool {
	for id, rec := range t.customers {
		if id != exceptID && rec.state.Email == email {
			return true
		}
	}
	return false
}
