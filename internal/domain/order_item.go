package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderItem struct {
	id         string
	orderID    string
	bookID     string
	unitPrice  decimal.Decimal
	quantity   int
	totalPrice decimal.Decimal
	createdAt  time.Time
	updatedAt  *time.Time
}

func NewOrderItem(orderID, bookID string, unitPrice decimal.Decimal, quantity int) (*OrderItem, error) {
	switch {
	case blank(orderID):
		return nil, invalid("Order ID cannot be empty.")
	case blank(bookID):
		return nil, invalid("Book ID cannot be empty.")
	case unitPrice.IsNegative():
		return nil, invalid("Unit price cannot be negative.")
	case quantity <= 0:
		return nil, invalid("Quantity must be positive.")
	}

	item := &OrderItem{
		id:        uuid.NewString(),
		orderID:   orderID,
		bookID:    bookID,
		unitPrice: unitPrice,
		quantity:  quantity,
		createdAt: time.Now().UTC(),
	}
	item.recalculate()
	return item, nil
}

func (i *OrderItem) ID() string                  { return i.id }
func (i *OrderItem) OrderID() string             { return i.orderID }
func (i *OrderItem) BookID() string              { return i.bookID }
func (i *OrderItem) UnitPrice() decimal.Decimal  { return i.unitPrice }
func (i *OrderItem) Quantity() int               { return i.quantity }
func (i *OrderItem) TotalPrice() decimal.Decimal { return i.totalPrice }
func (i *OrderItem) CreatedAt() time.Time        { return i.createdAt }
func (i *OrderItem) UpdatedAt() *time.Time       { return i.updatedAt }

func (i *OrderItem) UpdateQuantity(quantity int) error {
	if quantity <= 0 {
		return invalid("Quantity must be positive.")
	}
	i.quantity = quantity
	i.recalculate()
	i.touch()
	return nil
}

func (i *OrderItem) UpdateUnitPrice(unitPrice decimal.Decimal) error {
	if unitPrice.IsNegative() {
		return invalid("Unit price cannot be negative.")
	}
	i.unitPrice = unitPrice
	i.recalculate()
	i.touch()
	return nil
}

func (i *OrderItem) recalculate() {
	i.totalPrice = i.unitPrice.Mul(decimal.NewFromInt(int64(i.quantity)))
}

func (i *OrderItem) touch() {
	now := time.Now().UTC()
	i.updatedAt = &now
}

type OrderItemState struct {
	ID         string
	OrderID    string
	BookID     string
	UnitPrice  decimal.Decimal
	Quantity   int
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

func (i *OrderItem) Snapshot() OrderItemState {
	return OrderItemState{
		ID:         i.id,
		OrderID:    i.orderID,
		BookID:     i.bookID,
		UnitPrice:  i.unitPrice,
		Quantity:   i.quantity,
		TotalPrice: i.totalPrice,
		CreatedAt:  i.createdAt,
		UpdatedAt:  copyTime(i.updatedAt),
	}
}

// RestoreOrderItem recomputes the line total from price and quantity.
func RestoreOrderItem(s OrderItemState) *OrderItem {
	item := &OrderItem{
		id:        s.ID,
		orderID:   s.OrderID,
		bookID:    s.BookID,
		unitPrice: s.UnitPrice,
		quantity:  s.Quantity,
		createdAt: s.CreatedAt,
		updatedAt: copyTime(s.UpdatedAt),
	}
	item.recalculate()
	return item
}
