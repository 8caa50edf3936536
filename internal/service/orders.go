package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/events"
	"github.com/safar/go-bookstore/internal/repository"
)

type CreateOrderItem struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

type CreateOrderCommand struct {
	CustomerID      string               `json:"customer_id"`
	ShippingAddress AddressDTO           `json:"shipping_address"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method"`
	Notes           string               `json:"notes"`
	Items           []CreateOrderItem    `json:"items"`
}

type AddOrderItemCommand struct {
	OrderID  string `json:"order_id"`
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

type UpdateOrderCommand struct {
	ID              string     `json:"id"`
	ShippingAddress AddressDTO `json:"shipping_address"`
	Notes           string     `json:"notes"`
}

// CreateOrder places a pending order and reserves stock for every item in
// one transaction.
func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (dto OrderDTO, err error) {
	defer s.observe("create_order", time.Now(), &err, log.Fields{"customer_id": cmd.CustomerID})

	u, err := s.open(ctx)
	if err != nil {
		return OrderDTO{}, err
	}
	defer closeUnit(u, s.log)

	var order *domain.Order
	titles := make(map[string]string)

	err = s.inTransaction(ctx, u, "create_order", func() error {
		customer, err := u.Customers().GetByID(ctx, cmd.CustomerID)
		if err != nil {
			return notFound(err, "Customer", cmd.CustomerID)
		}

		address, err := cmd.ShippingAddress.toDomain()
		if err != nil {
			return err
		}
		order, err = domain.NewOrder(customer.ID(), address, cmd.PaymentMethod, cmd.Notes)
		if err != nil {
			return err
		}

		for _, item := range cmd.Items {
			book, err := s.reserve(ctx, u, order, item.BookID, item.Quantity)
			if err != nil {
				return err
			}
			titles[book.ID()] = book.Title()
		}

		return u.Orders().Add(ctx, order)
	})
	if err != nil {
		return OrderDTO{}, err
	}

	s.invalidateBooks(ctx, bookIDs(order)...)
	s.publish(ctx, events.OrderCreated, order.ID(), orderPayload(order))
	return toOrderDTO(order, titles), nil
}

// AddOrderItem adds a line to a pending order, merging with an existing line
// for the same book, and reserves the stock.
func (s *Service) AddOrderItem(ctx context.Context, cmd AddOrderItemCommand) (dto OrderDTO, err error) {
	defer s.observe("add_order_item", time.Now(), &err, log.Fields{"order_id": cmd.OrderID, "book_id": cmd.BookID})

	u, err := s.open(ctx)
	if err != nil {
		return OrderDTO{}, err
	}
	defer closeUnit(u, s.log)

	var order *domain.Order
	err = s.inTransaction(ctx, u, "add_order_item", func() error {
		var err error
		order, err = u.Orders().GetByID(ctx, cmd.OrderID)
		if err != nil {
			return notFound(err, "Order", cmd.OrderID)
		}
		if !order.IsPending() {
			return domain.NewStateConflict(
				"Cannot add items to order with status %s. Only pending orders can be modified.", order.Status())
		}

		if _, err := s.reserve(ctx, u, order, cmd.BookID, cmd.Quantity); err != nil {
			return err
		}
		return u.Orders().Update(ctx, order)
	})
	if err != nil {
		return OrderDTO{}, err
	}

	s.invalidateBooks(ctx, cmd.BookID)
	s.publish(ctx, events.OrderItemAdded, order.ID(), orderPayload(order))
	return s.orderDTO(ctx, u, order)
}

// reserve loads the book, checks and takes its stock, and adds the line to order.
func (s *Service) reserve(ctx context.Context, u repository.UnitOfWork, order *domain.Order, bookID string, quantity int) (*domain.Book, error) {
	book, err := u.Books().GetByID(ctx, bookID)
	if err != nil {
		return nil, notFound(err, "Book", bookID)
	}
	if !book.HasStock(quantity) {
		return nil, &domain.InsufficientStockError{
			Title:     book.Title(),
			Available: book.StockQuantity(),
			Requested: quantity,
		}
	}
	if err := order.AddOrderItem(book, quantity); err != nil {
		return nil, err
	}
	if err := book.ReserveStock(quantity); err != nil {
		return nil, err
	}
	if err := u.Books().Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// UpdateOrderStatus moves an order through its state machine. Stock is not
// touched, cancelled orders keep their reservation until deleted.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (dto OrderDTO, err error) {
	defer s.observe("update_order_status", time.Now(), &err, log.Fields{"order_id": id, "status": status.String()})

	u, err := s.open(ctx)
	if err != nil {
		return OrderDTO{}, err
	}
	defer closeUnit(u, s.log)

	order, err := u.Orders().GetByID(ctx, id)
	if err != nil {
		return OrderDTO{}, notFound(err, "Order", id)
	}
	from := order.Status()

	switch status {
	case domain.OrderStatusConfirmed:
		err = order.ConfirmOrder()
	case domain.OrderStatusShipped:
		err = order.ShipOrder()
	case domain.OrderStatusDelivered:
		err = order.DeliverOrder()
	case domain.OrderStatusCancelled:
		err = order.CancelOrder()
	default:
		err = domain.NewStateConflict("Invalid status transition to %s", status)
	}
	if err != nil {
		return OrderDTO{}, err
	}

	if err := u.Orders().Update(ctx, order); err != nil {
		return OrderDTO{}, err
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		return OrderDTO{}, err
	}

	s.publish(ctx, events.OrderStatusChanged, order.ID(), events.OrderStatusChangedPayload{
		OrderID: order.ID(),
		From:    from.String(),
		To:      order.Status().String(),
	})
	return s.orderDTO(ctx, u, order)
}

// UpdateOrder replaces the shipping address of a pending order, and its notes
// when new ones are given.
func (s *Service) UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (dto OrderDTO, err error) {
	defer s.observe("update_order", time.Now(), &err, log.Fields{"order_id": cmd.ID})

	u, err := s.open(ctx)
	if err != nil {
		return OrderDTO{}, err
	}
	defer closeUnit(u, s.log)

	order, err := u.Orders().GetByID(ctx, cmd.ID)
	if err != nil {
		return OrderDTO{}, notFound(err, "Order", cmd.ID)
	}
	if !order.IsPending() {
		return OrderDTO{}, domain.NewStateConflict(
			"Cannot update order with status %s. Only pending orders can be updated.", order.Status())
	}

	address, err := cmd.ShippingAddress.toDomain()
	if err != nil {
		return OrderDTO{}, err
	}
	if err := order.UpdateShippingAddress(address); err != nil {
		return OrderDTO{}, err
	}
	if cmd.Notes != "" {
		order.UpdateNotes(cmd.Notes)
	}

	if err := u.Orders().Update(ctx, order); err != nil {
		return OrderDTO{}, err
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		return OrderDTO{}, err
	}

	s.publish(ctx, events.OrderUpdated, order.ID(), orderPayload(order))
	return s.orderDTO(ctx, u, order)
}

// DeleteOrder removes a pending or cancelled order and reports false when it
// does not exist. Deleting a pending order gives its stock back.
func (s *Service) DeleteOrder(ctx context.Context, id string) (deleted bool, err error) {
	defer s.observe("delete_order", time.Now(), &err, log.Fields{"order_id": id})

	u, err := s.open(ctx)
	if err != nil {
		return false, err
	}
	defer closeUnit(u, s.log)

	var (
		order    *domain.Order
		restored []string
	)
	err = s.inTransaction(ctx, u, "delete_order", func() error {
		var err error
		order, err = u.Orders().GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			order = nil
			return nil
		}
		if err != nil {
			return err
		}

		switch order.Status() {
		case domain.OrderStatusPending:
			for _, item := range order.Items() {
				book, err := u.Books().GetByID(ctx, item.BookID())
				if errors.Is(err, repository.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if err := book.UpdateStock(book.StockQuantity() + item.Quantity()); err != nil {
					return err
				}
				if err := u.Books().Update(ctx, book); err != nil {
					return err
				}
				restored = append(restored, book.ID())
			}
		case domain.OrderStatusCancelled:
		default:
			return domain.NewStateConflict(
				"Cannot delete order with status %s. Only pending or cancelled orders can be deleted.", order.Status())
		}

		return u.Orders().Delete(ctx, id)
	})
	if err != nil || order == nil {
		return false, err
	}

	s.invalidateBooks(ctx, restored...)
	s.publish(ctx, events.OrderDeleted, id, events.OrderDeletedPayload{
		OrderID:       id,
		Status:        order.Status().String(),
		StockRestored: len(restored) > 0,
	})
	return true, nil
}

func (s *Service) GetOrderByID(ctx context.Context, id string) (OrderDTO, error) {
	u, err := s.open(ctx)
	if err != nil {
		return OrderDTO{}, err
	}
	defer closeUnit(u, s.log)

	order, err := u.Orders().GetByID(ctx, id)
	if err != nil {
		return OrderDTO{}, notFound(err, "Order", id)
	}
	return s.orderDTO(ctx, u, order)
}

func (s *Service) ListOrders(ctx context.Context) ([]OrderDTO, error) {
	return s.listOrders(ctx, func(u repository.UnitOfWork) ([]*domain.Order, error) {
		return u.Orders().GetAll(ctx)
	})
}

func (s *Service) ListOrdersByCustomer(ctx context.Context, customerID string) ([]OrderDTO, error) {
	return s.listOrders(ctx, func(u repository.UnitOfWork) ([]*domain.Order, error) {
		return u.Orders().GetByCustomerID(ctx, customerID)
	})
}

func (s *Service) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]OrderDTO, error) {
	return s.listOrders(ctx, func(u repository.UnitOfWork) ([]*domain.Order, error) {
		return u.Orders().GetByStatus(ctx, status)
	})
}

// ListOrdersByDateRange includes orders placed exactly at start or end.
func (s *Service) ListOrdersByDateRange(ctx context.Context, start, end time.Time) ([]OrderDTO, error) {
	if end.Before(start) {
		return nil, &domain.ValidationError{Message: "End date must not be before start date."}
	}
	return s.listOrders(ctx, func(u repository.UnitOfWork) ([]*domain.Order, error) {
		return u.Orders().GetByDateRange(ctx, start, end)
	})
}

func (s *Service) listOrders(ctx context.Context, load func(repository.UnitOfWork) ([]*domain.Order, error)) ([]OrderDTO, error) {
	u, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer closeUnit(u, s.log)

	orders, err := load(u)
	if err != nil {
		return nil, err
	}
	titles, err := s.bookTitles(ctx, u, orders...)
	if err != nil {
		return nil, err
	}

	out := make([]OrderDTO, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderDTO(order, titles))
	}
	return out, nil
}

func (s *Service) orderDTO(ctx context.Context, u repository.UnitOfWork, order *domain.Order) (OrderDTO, error) {
	titles, err := s.bookTitles(ctx, u, order)
	if err != nil {
		return OrderDTO{}, err
	}
	return toOrderDTO(order, titles), nil
}

// bookTitles resolves the titles of every book on orders; books that no
// longer exist are left out.
func (s *Service) bookTitles(ctx context.Context, u repository.UnitOfWork, orders ...*domain.Order) (map[string]string, error) {
	titles := make(map[string]string)
	for _, order := range orders {
		for _, item := range order.Items() {
			if _, ok := titles[item.BookID()]; ok {
				continue
			}
			book, err := u.Books().GetByID(ctx, item.BookID())
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			titles[book.ID()] = book.Title()
		}
	}
	return titles, nil
}

func bookIDs(order *domain.Order) []string {
	ids := make([]string, 0, order.ItemCount())
	for _, item := range order.Items() {
		ids = append(ids, item.BookID())
	}
	return ids
}

func orderPayload(order *domain.Order) events.OrderPayload {
	items := make([]events.OrderItemPayload, 0, order.ItemCount())
	for _, item := range order.Items() {
		items = append(items, events.OrderItemPayload{
			BookID:    item.BookID(),
			Quantity:  item.Quantity(),
			UnitPrice: item.UnitPrice().String(),
		})
	}
	return events.OrderPayload{
		OrderID:    order.ID(),
		CustomerID: order.CustomerID(),
		Status:     order.Status().String(),
		Total:      order.Total().String(),
		Items:      items,
	}
}
