package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	TaxRate               = decimal.RequireFromString("0.08")
	FreeShippingThreshold = decimal.NewFromInt(50)
	StandardShippingCost  = decimal.RequireFromString("5.99")
)

type Order struct {
	id              string
	customerID      string
	status          OrderStatus
	orderDate       time.Time
	shippedDate     *time.Time
	deliveredDate   *time.Time
	shippingAddress Address
	paymentMethod   PaymentMethod
	subtotal        decimal.Decimal
	tax             decimal.Decimal
	shippingCost    decimal.Decimal
	total           decimal.Decimal
	notes           string
	items           []*OrderItem
	createdAt       time.Time
	updatedAt       *time.Time
}

func NewOrder(customerID string, shippingAddress Address, paymentMethod PaymentMethod, notes string) (*Order, error) {
	switch {
	case blank(customerID):
		return nil, invalid("Customer ID cannot be empty.")
	case shippingAddress.IsZero():
		return nil, invalid("Shipping address cannot be null.")
	case !paymentMethod.Valid():
		return nil, invalid("Invalid payment method.")
	}

	now := time.Now().UTC()
	o := &Order{
		id:              uuid.NewString(),
		customerID:      customerID,
		status:          OrderStatusPending,
		orderDate:       now,
		shippingAddress: shippingAddress,
		paymentMethod:   paymentMethod,
		notes:           notes,
		createdAt:       now,
	}
	o.recalculate()
	return o, nil
}

func (o *Order) ID() string                     { return o.id }
func (o *Order) CustomerID() string             { return o.customerID }
func (o *Order) Status() OrderStatus            { return o.status }
func (o *Order) OrderDate() time.Time           { return o.orderDate }
func (o *Order) ShippedDate() *time.Time        { return o.shippedDate }
func (o *Order) DeliveredDate() *time.Time      { return o.deliveredDate }
func (o *Order) ShippingAddress() Address       { return o.shippingAddress }
func (o *Order) PaymentMethod() PaymentMethod   { return o.paymentMethod }
func (o *Order) Subtotal() decimal.Decimal      { return o.subtotal }
func (o *Order) Tax() decimal.Decimal           { return o.tax }
func (o *Order) ShippingCost() decimal.Decimal  { return o.shippingCost }
func (o *Order) Total() decimal.Decimal         { return o.total }
func (o *Order) Notes() string                  { return o.notes }
func (o *Order) CreatedAt() time.Time           { return o.createdAt }
func (o *Order) UpdatedAt() *time.Time          { return o.updatedAt }
func (o *Order) IsPending() bool                { return o.status == OrderStatusPending }
func (o *Order) Items() []*OrderItem            { return append([]*OrderItem(nil), o.items...) }
func (o *Order) ItemCount() int                 { return len(o.items) }

// Item returns the line for bookID, or nil.
func (o *Order) Item(bookID string) *OrderItem {
	for _, item := range o.items {
		if item.bookID == bookID {
			return item
		}
	}
	return nil
}

// AddOrderItem snapshots the book price; a second add of the same book grows the existing line.
func (o *Order) AddOrderItem(book *Book, quantity int) error {
	if book == nil {
		return invalid("Book cannot be null.")
	}
	if quantity <= 0 {
		return invalid("Quantity must be positive.")
	}
	if o.status != OrderStatusPending {
		return conflict("Cannot add items to an order that is not pending.")
	}

	if existing := o.Item(book.ID()); existing != nil {
		if err := existing.UpdateQuantity(existing.quantity + quantity); err != nil {
			return err
		}
	} else {
		item, err := NewOrderItem(o.id, book.ID(), book.Price(), quantity)
		if err != nil {
			return err
		}
		o.items = append(o.items, item)
	}

	o.recalculate()
	o.touch()
	return nil
}

// RemoveOrderItem is a no-op when the book is not on the order.
func (o *Order) RemoveOrderItem(bookID string) error {
	if o.status != OrderStatusPending {
		return conflict("Cannot remove items from an order that is not pending.")
	}
	for i, item := range o.items {
		if item.bookID == bookID {
			o.items = append(o.items[:i], o.items[i+1:]...)
			o.recalculate()
			o.touch()
			break
		}
	}
	return nil
}

func (o *Order) UpdateOrderItemQuantity(bookID string, quantity int) error {
	if o.status != OrderStatusPending {
		return conflict("Cannot update items in an order that is not pending.")
	}
	item := o.Item(bookID)
	if item == nil {
		return nil
	}
	if err := item.UpdateQuantity(quantity); err != nil {
		return err
	}
	o.recalculate()
	o.touch()
	return nil
}

func (o *Order) ConfirmOrder() error {
	if o.status != OrderStatusPending {
		return conflict("Only pending orders can be confirmed.")
	}
	if len(o.items) == 0 {
		return conflict("Cannot confirm an order without items.")
	}
	o.status = OrderStatusConfirmed
	o.touch()
	return nil
}

func (o *Order) ShipOrder() error {
	if o.status != OrderStatusConfirmed {
		return conflict("Only confirmed orders can be shipped.")
	}
	now := time.Now().UTC()
	o.status = OrderStatusShipped
	o.shippedDate = &now
	o.touch()
	return nil
}

func (o *Order) DeliverOrder() error {
	if o.status != OrderStatusShipped {
		return conflict("Only shipped orders can be delivered.")
	}
	now := time.Now().UTC()
	o.status = OrderStatusDelivered
	o.deliveredDate = &now
	o.touch()
	return nil
}

// CancelOrder is allowed from every status except Delivered, including Cancelled itself.
func (o *Order) CancelOrder() error {
	if o.status == OrderStatusDelivered {
		return conflict("Cannot cancel a delivered order.")
	}
	o.status = OrderStatusCancelled
	o.touch()
	return nil
}

func (o *Order) UpdateShippingAddress(address Address) error {
	if o.status != OrderStatusPending {
		return conflict("Cannot update shipping address for non-pending orders.")
	}
	if address.IsZero() {
		return invalid("Shipping address cannot be null.")
	}
	o.shippingAddress = address
	o.touch()
	return nil
}

func (o *Order) UpdateNotes(notes string) {
	o.notes = notes
	o.touch()
}

func (o *Order) recalculate() {
	subtotal := decimal.Zero
	for _, item := range o.items {
		subtotal = subtotal.Add(item.totalPrice)
	}
	o.subtotal = subtotal
	o.tax = subtotal.Mul(TaxRate)
	if subtotal.GreaterThan(FreeShippingThreshold) {
		o.shippingCost = decimal.Zero
	} else {
		o.shippingCost = StandardShippingCost
	}
	o.total = o.subtotal.Add(o.tax).Add(o.shippingCost)
}

func (o *Order) touch() {
	now := time.Now().UTC()
	o.updatedAt = &now
}

type OrderState struct {
	ID              string
	CustomerID      string
	Status          OrderStatus
	OrderDate       time.Time
	ShippedDate     *time.Time
	DeliveredDate   *time.Time
	ShippingAddress AddressState
	PaymentMethod   PaymentMethod
	Notes           string
	Items           []OrderItemState
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

func (o *Order) Snapshot() OrderState {
	items := make([]OrderItemState, 0, len(o.items))
	for _, item := range o.items {
		items = append(items, item.Snapshot())
	}
	return OrderState{
		ID:              o.id,
		CustomerID:      o.customerID,
		Status:          o.status,
		OrderDate:       o.orderDate,
		ShippedDate:     copyTime(o.shippedDate),
		DeliveredDate:   copyTime(o.deliveredDate),
		ShippingAddress: o.shippingAddress.Snapshot(),
		PaymentMethod:   o.paymentMethod,
		Notes:           o.notes,
		Items:           items,
		CreatedAt:       o.createdAt,
		UpdatedAt:       copyTime(o.updatedAt),
	}
}

// RestoreOrder rebuilds an Order and derives its totals from the items.
func RestoreOrder(s OrderState) *Order {
	o := &Order{
		id:              s.ID,
		customerID:      s.CustomerID,
		status:          s.Status,
		orderDate:       s.OrderDate,
		shippedDate:     copyTime(s.ShippedDate),
		deliveredDate:   copyTime(s.DeliveredDate),
		shippingAddress: RestoreAddress(s.ShippingAddress),
		paymentMethod:   s.PaymentMethod,
		notes:           s.Notes,
		createdAt:       s.CreatedAt,
		updatedAt:       copyTime(s.UpdatedAt),
	}
	for _, item := range s.Items {
		o.items = append(o.items, RestoreOrderItem(item))
	}
	o.recalculate()
	return o
}
