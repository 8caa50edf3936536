package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/repository"
	"github.com/safar/go-bookstore/internal/uow"
)

type orderRepository struct {
	u     *UnitOfWork
	cache *uow.IdentityMap[*domain.Order]
}

func orderKey(id string) string { return "order:" + id }

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if r.cache.Removed(id) {
		return nil, repository.ErrNotFound
	}
	if order, ok := r.cache.Get(id); ok {
		return order, nil
	}

	orders, err := r.list(func(s domain.OrderState) bool { return s.ID == id })
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, repository.ErrNotFound
	}
	return orders[0], nil
}

func (r *orderRepository) GetAll(ctx context.Context) ([]*domain.Order, error) {
	return r.list(func(domain.OrderState) bool { return true })
}

func (r *orderRepository) GetByCustomerID(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return r.list(func(s domain.OrderState) bool { return s.CustomerID == customerID })
}

func (r *orderRepository) GetByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	return r.list(func(s domain.OrderState) bool { return s.Status == status })
}

func (r *orderRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.Order, error) {
	return r.list(func(s domain.OrderState) bool {
		return !s.OrderDate.Before(start) && !s.OrderDate.After(end)
	})
}

func (r *orderRepository) list(match func(domain.OrderState) bool) ([]*domain.Order, error) {
	var states []domain.OrderState
	err := r.u.read(func(t *tables) error {
		for id, rec := range t.orders {
			if !match(rec.state) {
				continue
			}
			r.u.session.Observe(orderKey(id), rec.version)
			states = append(states, rec.state)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(states, func(i, j int) bool {
		if !states[i].OrderDate.Equal(states[j].OrderDate) {
			return states[i].OrderDate.After(states[j].OrderDate)
		}
		return states[i].ID < states[j].ID
	})

	ids := make([]string, len(states))
	orders := make([]*domain.Order, len(states))
	for i, s := range states {
		ids[i] = s.ID
		orders[i] = domain.RestoreOrder(s)
	}
	return r.cache.Resolve(ids, orders), nil
}

func checkOrderRefs(t *tables, s domain.OrderState) error {
	if _, ok := t.customers[s.CustomerID]; !ok {
		return fmt.Errorf("order %s customer %s: %w", s.ID, s.CustomerID, ErrMissingRef)
	}
	for _, item := range s.Items {
		if _, ok := t.books[item.BookID]; !ok {
			return fmt.Errorf("order %s book %s: %w", s.ID, item.BookID, ErrMissingRef)
		}
	}
	return nil
}

func (r *orderRepository) Add(ctx context.Context, order *domain.Order) error {
	r.cache.Put(order.ID(), order)
	r.u.session.Insert(orderKey(order.ID()), func(ctx context.Context, t *tables, _ int) (int64, error) {
		s := order.Snapshot()
		if _, ok := t.orders[s.ID]; ok {
			return 0, fmt.Errorf("create order %s: %w", s.ID, ErrDuplicateKey)
		}
		if err := checkOrderRefs(t, s); err != nil {
			return 0, fmt.Errorf("create order: %w", err)
		}
		t.orders[s.ID] = record[domain.OrderState]{state: s, version: 1}
		return 1 + int64(len(s.Items)), nil
	})
	return nil
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	r.cache.Put(order.ID(), order)
	r.u.session.Update(orderKey(order.ID()), func(ctx context.Context, t *tables, version int) (int64, error) {
		s := order.Snapshot()
		rec, ok := t.orders[s.ID]
		if !ok || (version != 0 && rec.version != version) {
			return 0, nil
		}
		if err := checkOrderRefs(t, s); err != nil {
			return 0, fmt.Errorf("update order: %w", err)
		}
		t.orders[s.ID] = record[domain.OrderState]{state: s, version: rec.version + 1}
		return 1 + int64(len(s.Items)), nil
	})
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	r.cache.Remove(id)
	r.u.session.Delete(orderKey(id), func(ctx context.Context, t *tables, version int) (int64, error) {
		rec, ok := t.orders[id]
		if !ok || (version != 0 && rec.version != version) {
			return 0, nil
		}
		delete(t.orders, id)
		return 1, nil
	})
	return nil
}

func (r *orderRepository) Exists(ctx context.Context, id string) (bool, error) {
	if r.cache.Removed(id) {
		return false, nil
	}
	if _, ok := r.cache.Get(id); ok {
		return true, nil
	}
	var found bool
	err := r.u.read(func(t *tables) error {
		_, found = t.orders[id]
		return nil
	})
	return found, err
}

func (r *orderRepository) ExistsWithBook(ctx context.Context, bookID string) (bool, error) {
	var found bool
	err := r.u.read(func(t *tables) error {
		for _, rec := range t.orders {
			for _, item := range rec.state.Items {
				if item.BookID == bookID {
					found = true
					return nil
				}
			}
		}
		return nil
	})
	return found, err
}
