package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/repository"
	"github.com/safar/go-bookstore/internal/uow"
)

const orderColumns = `id, customer_id, status, order_date, shipped_date, delivered_date,
	shipping_street, shipping_city, shipping_state, shipping_zip_code, shipping_country,
	payment_method, notes, created_at, updated_at, version`

const orderItemColumns = `id, order_id, book_id, unit_price, quantity, created_at, updated_at`

type orderRepository struct {
	u     *UnitOfWork
	cache *uow.IdentityMap[*domain.Order]
}

func orderKey(id string) string { return "order:" + id }

func scanOrder(row rowScanner) (domain.OrderState, int, error) {
	var (
		s             domain.OrderState
		status        int
		paymentMethod int
		shippedDate   sql.NullTime
		deliveredDate sql.NullTime
		updatedAt     sql.NullTime
		version       int
	)

	err := row.Scan(
		&s.ID,
		&s.CustomerID,
		&status,
		&s.OrderDate,
		&shippedDate,
		&deliveredDate,
		&s.ShippingAddress.Street,
		&s.ShippingAddress.City,
		&s.ShippingAddress.State,
		&s.ShippingAddress.ZipCode,
		&s.ShippingAddress.Country,
		&paymentMethod,
		&s.Notes,
		&s.CreatedAt,
		&updatedAt,
		&version,
	)
	if err != nil {
		return s, 0, err
	}

	s.Status = domain.OrderStatus(status)
	s.PaymentMethod = domain.PaymentMethod(paymentMethod)
	s.ShippedDate = nullTime(shippedDate)
	s.DeliveredDate = nullTime(deliveredDate)
	s.UpdatedAt = nullTime(updatedAt)
	return s, version, nil
}

func scanOrderItem(row rowScanner) (domain.OrderItemState, error) {
	var (
		s         domain.OrderItemState
		updatedAt sql.NullTime
	)
	err := row.Scan(&s.ID, &s.OrderID, &s.BookID, &s.UnitPrice, &s.Quantity, &s.CreatedAt, &updatedAt)
	if err != nil {
		return s, err
	}
	s.UpdatedAt = nullTime(updatedAt)
	return s, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if r.cache.Removed(id) || !validID(id) {
		return nil, repository.ErrNotFound
	}
	if order, ok := r.cache.Get(id); ok {
		return order, nil
	}

	row := r.u.q().QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`+r.u.forUpdate(), id)
	state, version, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.loadItems(ctx, `WHERE order_id = $1`, id)
	if err != nil {
		return nil, err
	}
	state.Items = items[id]

	order := domain.RestoreOrder(state)
	r.u.session.Observe(orderKey(id), version)
	r.cache.Put(id, order)
	return order, nil
}

func (r *orderRepository) GetAll(ctx context.Context) ([]*domain.Order, error) {
	return r.list(ctx, "list orders", "")
}

func (r *orderRepository) GetByCustomerID(ctx context.Context, customerID string) ([]*domain.Order, error) {
	if !validID(customerID) {
		return nil, nil
	}
	return r.list(ctx, "list orders by customer", "WHERE customer_id = $1", customerID)
}

func (r *orderRepository) GetByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	return r.list(ctx, "list orders by status", "WHERE status = $1", int(status))
}

func (r *orderRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.Order, error) {
	return r.list(ctx, "list orders by date range", "WHERE order_date BETWEEN $1 AND $2", start, end)
}

// list loads the matching orders and then all of their items with one more query.
func (r *orderRepository) list(ctx context.Context, op, where string, args ...any) ([]*domain.Order, error) {
	rows, err := r.u.q().QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders `+where+` ORDER BY order_date DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		states   []domain.OrderState
		versions []int
	)
	for rows.Next() {
		state, version, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		states = append(states, state)
		versions = append(versions, version)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if len(states) == 0 {
		return nil, nil
	}

	items, err := r.loadItems(ctx, `WHERE order_id IN (SELECT id FROM orders `+where+`)`, args...)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(states))
	orders := make([]*domain.Order, 0, len(states))
	for i, state := range states {
		state.Items = items[state.ID]
		r.u.session.Observe(orderKey(state.ID), versions[i])
		ids = append(ids, state.ID)
		orders = append(orders, domain.RestoreOrder(state))
	}

	return r.cache.Resolve(ids, orders), nil
}

func (r *orderRepository) loadItems(ctx context.Context, where string, args ...any) (map[string][]domain.OrderItemState, error) {
	rows, err := r.u.q().QueryContext(ctx,
		`SELECT `+orderItemColumns+` FROM order_items `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItemState)
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func (r *orderRepository) Add(ctx context.Context, order *domain.Order) error {
	r.cache.Put(order.ID(), order)
	r.u.session.Insert(orderKey(order.ID()), func(ctx context.Context, q querier, _ int) (int64, error) {
		s := order.Snapshot()
		result, err := q.ExecContext(ctx,
			`INSERT INTO orders (id, customer_id, status, order_date, shipped_date, delivered_date,
			                     shipping_street, shipping_city, shipping_state, shipping_zip_code,
			                     shipping_country, payment_method, subtotal, tax, shipping_cost, total,
			                     notes, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, 1)`,
			s.ID, s.CustomerID, int(s.Status), s.OrderDate, s.ShippedDate, s.DeliveredDate,
			s.ShippingAddress.Street, s.ShippingAddress.City, s.ShippingAddress.State,
			s.ShippingAddress.ZipCode, s.ShippingAddress.Country, int(s.PaymentMethod),
			order.Subtotal(), order.Tax(), order.ShippingCost(), order.Total(),
			s.Notes, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("create order: %w", err)
		}
		n, err := rowsAffected(result)
		if err != nil {
			return 0, err
		}

		itemRows, err := insertItems(ctx, q, s.Items)
		return n + itemRows, err
	})
	return nil
}

// Update rewrites the order row and replaces its item lines.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	r.cache.Put(order.ID(), order)
	r.u.session.Update(orderKey(order.ID()), func(ctx context.Context, q querier, version int) (int64, error) {
		s := order.Snapshot()
		result, err := q.ExecContext(ctx,
			`UPDATE orders
			 SET status = $2, shipped_date = $3, delivered_date = $4, shipping_street = $5,
			     shipping_city = $6, shipping_state = $7, shipping_zip_code = $8, shipping_country = $9,
			     payment_method = $10, subtotal = $11, tax = $12, shipping_cost = $13, total = $14,
			     notes = $15, updated_at = $16, version = version + 1
			 WHERE id = $1 AND ($17 = 0 OR version = $17)`,
			s.ID, int(s.Status), s.ShippedDate, s.DeliveredDate, s.ShippingAddress.Street,
			s.ShippingAddress.City, s.ShippingAddress.State, s.ShippingAddress.ZipCode,
			s.ShippingAddress.Country, int(s.PaymentMethod), order.Subtotal(), order.Tax(),
			order.ShippingCost(), order.Total(), s.Notes, s.UpdatedAt, version)
		if err != nil {
			return 0, fmt.Errorf("update order: %w", err)
		}
		n, err := rowsAffected(result)
		if err != nil || n == 0 {
			return n, err
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, s.ID); err != nil {
			return 0, fmt.Errorf("clear order items: %w", err)
		}
		itemRows, err := insertItems(ctx, q, s.Items)
		return n + itemRows, err
	})
	return nil
}

func insertItems(ctx context.Context, q querier, items []domain.OrderItemState) (int64, error) {
	var total int64
	for _, item := range items {
		result, err := q.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, book_id, unit_price, quantity, total_price, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, item.OrderID, item.BookID, item.UnitPrice, item.Quantity, item.TotalPrice,
			item.CreatedAt, item.UpdatedAt)
		if err != nil {
			return total, fmt.Errorf("create order item: %w", err)
		}
		n, err := rowsAffected(result)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	r.cache.Remove(id)
	r.u.session.Delete(orderKey(id), func(ctx context.Context, q querier, version int) (int64, error) {
		result, err := q.ExecContext(ctx,
			`DELETE FROM orders WHERE id = $1 AND ($2 = 0 OR version = $2)`, id, version)
		if err != nil {
			return 0, fmt.Errorf("delete order: %w", err)
		}
		return rowsAffected(result)
	})
	return nil
}

func (r *orderRepository) Exists(ctx context.Context, id string) (bool, error) {
	if r.cache.Removed(id) || !validID(id) {
		return false, nil
	}
	if _, ok := r.cache.Get(id); ok {
		return true, nil
	}
	return exists(ctx, r.u.q(), "check order exists", `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id)
}

func (r *orderRepository) ExistsWithBook(ctx context.Context, bookID string) (bool, error) {
	if !validID(bookID) {
		return false, nil
	}
	return exists(ctx, r.u.q(), "check book referenced",
		`SELECT EXISTS(SELECT 1 FROM order_items WHERE book_id = $1)`, bookID)
}
