package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress(t *testing.T) Address {
	t.Helper()
	addr, err := NewAddress("1 Main St", "Springfield", "IL", "62701", "US")
	require.NoError(t, err)
	return addr
}

func testBook(t *testing.T, price string, stock int) *Book {
	t.Helper()
	book, err := NewBook(NewBookParams{
		Title:         "The Go Programming Language",
		Author:        "Donovan",
		ISBN:          "978-0134190440",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Category:      CategoryTechnology,
		PublishedDate: time.Date(2015, 10, 26, 0, 0, 0, 0, time.UTC),
		Publisher:     "Addison-Wesley",
		Pages:         380,
	})
	require.NoError(t, err)
	return book
}

func testOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder("customer-1", testAddress(t), PaymentCreditCard, "")
	require.NoError(t, err)
	return order
}

func TestNewAddressValidation(t *testing.T) {
	tests := []struct {
		name    string
		fields  [5]string
		wantMsg string
	}{
		{"street", [5]string{"", "c", "s", "z", "co"}, "Street cannot be empty."},
		{"city", [5]string{"st", " ", "s", "z", "co"}, "City cannot be empty."},
		{"state", [5]string{"st", "c", "", "z", "co"}, "State cannot be empty."},
		{"zip", [5]string{"st", "c", "s", "", "co"}, "Zip code cannot be empty."},
		{"country", [5]string{"st", "c", "s", "z", ""}, "Country cannot be empty."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAddress(tt.fields[0], tt.fields[1], tt.fields[2], tt.fields[3], tt.fields[4])
			require.ErrorIs(t, err, ErrValidation)
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestAddressEquality(t *testing.T) {
	a := testAddress(t)
	b := testAddress(t)
	assert.True(t, a.Equal(b))
	assert.Equal(t, "1 Main St, Springfield, IL 62701, US", a.FullAddress())
	assert.Equal(t, a, RestoreAddress(a.Snapshot()))
}

func TestNewBookDerivesStatusFromStock(t *testing.T) {
	assert.Equal(t, BookStatusAvailable, testBook(t, "10", 3).Status())
	assert.Equal(t, BookStatusOutOfStock, testBook(t, "10", 0).Status())
}

func TestNewBookValidation(t *testing.T) {
	base := NewBookParams{Title: "t", Author: "a", ISBN: "i", Price: decimal.NewFromInt(1), StockQuantity: 1, Category: CategoryOther, Pages: 1}

	tests := []struct {
		name    string
		mutate  func(p *NewBookParams)
		wantMsg string
	}{
		{"title", func(p *NewBookParams) { p.Title = "" }, "Title cannot be empty."},
		{"author", func(p *NewBookParams) { p.Author = "" }, "Author cannot be empty."},
		{"isbn", func(p *NewBookParams) { p.ISBN = "" }, "ISBN cannot be empty."},
		{"price", func(p *NewBookParams) { p.Price = decimal.NewFromInt(-1) }, "Price cannot be negative."},
		{"stock", func(p *NewBookParams) { p.StockQuantity = -1 }, "Stock quantity cannot be negative."},
		{"pages", func(p *NewBookParams) { p.Pages = 0 }, "Pages must be positive."},
		{"category unset", func(p *NewBookParams) { p.Category = 0 }, "Invalid book category."},
		{"category out of range", func(p *NewBookParams) { p.Category = CategoryOther + 1 }, "Invalid book category."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			_, err := NewBook(p)
			require.ErrorIs(t, err, ErrValidation)
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestBookReserveStock(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		reserve   int
		wantStock int
		wantErr   string
	}{
		{"partial", 5, 3, 2, ""},
		{"all", 5, 5, 0, ""},
		{"too many", 2, 5, 2, "Insufficient stock for reservation."},
		{"zero", 2, 0, 2, "Reservation quantity must be positive."},
		{"negative", 2, -1, 2, "Reservation quantity must be positive."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := testBook(t, "10", tt.stock)
			err := book.ReserveStock(tt.reserve)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantStock, book.StockQuantity())
			assert.Equal(t, tt.wantStock > 0, book.IsAvailable())
		})
	}
}

func TestBookUpdateStock(t *testing.T) {
	book := testBook(t, "10", 1)

	require.NoError(t, book.UpdateStock(0))
	assert.Equal(t, BookStatusOutOfStock, book.Status())
	assert.NotNil(t, book.UpdatedAt())

	require.NoError(t, book.UpdateStock(4))
	assert.Equal(t, BookStatusAvailable, book.Status())

	assert.EqualError(t, book.UpdateStock(-1), "Stock quantity cannot be negative.")
	assert.Equal(t, 4, book.StockQuantity())
}

func TestBookUpdateDetailsKeepsPriceAndStock(t *testing.T) {
	book := testBook(t, "12.50", 7)

	require.NoError(t, book.UpdateDetails("New", "Other", "desc", CategoryFiction, "Pub", 100))
	assert.Equal(t, "New", book.Title())
	assert.True(t, decimal.RequireFromString("12.50").Equal(book.Price()))
	assert.Equal(t, 7, book.StockQuantity())

	assert.EqualError(t, book.UpdateDetails("x", "y", "", CategoryFiction, "", 0), "Pages must be positive.")
	assert.EqualError(t, book.UpdateDetails("x", "y", "", 0, "", 10), "Invalid book category.")
	assert.Equal(t, CategoryFiction, book.Category())
	assert.EqualError(t, book.UpdatePrice(decimal.NewFromInt(-2)), "Price cannot be negative.")
}

func TestCustomerLifecycle(t *testing.T) {
	_, err := NewCustomer("Ada", "Lovelace", "ada@example.com", "555", Address{})
	assert.EqualError(t, err, "Address cannot be null.")

	c, err := NewCustomer("Ada", "Lovelace", "ada@example.com", "555", testAddress(t))
	require.NoError(t, err)
	assert.Equal(t, CustomerStatusActive, c.Status())
	assert.Equal(t, "Ada Lovelace", c.FullName())

	assert.EqualError(t, c.UpdateName("", "x"), "First name cannot be empty.")
	assert.EqualError(t, c.UpdateContactInfo("a@b.c", ""), "Phone number cannot be empty.")
	assert.Equal(t, "ada@example.com", c.Email())

	c.Deactivate()
	assert.Equal(t, CustomerStatusInactive, c.Status())
	c.Activate()
	assert.Equal(t, CustomerStatusActive, c.Status())

	c.UpdateLastLogin()
	restored := RestoreCustomer(c.Snapshot())
	assert.Equal(t, c.Snapshot(), restored.Snapshot())
}

func TestNewOrderValidation(t *testing.T) {
	_, err := NewOrder("", testAddress(t), PaymentPayPal, "")
	assert.EqualError(t, err, "Customer ID cannot be empty.")

	_, err = NewOrder("c", Address{}, PaymentPayPal, "")
	assert.EqualError(t, err, "Shipping address cannot be null.")

	_, err = NewOrder("c", testAddress(t), 0, "")
	assert.EqualError(t, err, "Invalid payment method.")
	assert.ErrorIs(t, err, ErrValidation)

	order := testOrder(t)
	assert.Equal(t, OrderStatusPending, order.Status())
	assert.True(t, order.Subtotal().IsZero())
	assert.True(t, StandardShippingCost.Equal(order.ShippingCost()))
}

func TestOrderTotals(t *testing.T) {
	order := testOrder(t)
	book := testBook(t, "45.99", 10)

	require.NoError(t, order.AddOrderItem(book, 2))

	assert.Equal(t, "91.98", order.Subtotal().String())
	assert.Equal(t, "7.3584", order.Tax().String())
	assert.True(t, order.ShippingCost().IsZero())
	assert.Equal(t, "99.3384", order.Total().String())
}

func TestOrderShippingThresholdIsExclusive(t *testing.T) {
	order := testOrder(t)
	require.NoError(t, order.AddOrderItem(testBook(t, "25", 10), 2))

	assert.Equal(t, "50", order.Subtotal().String())
	assert.Equal(t, "5.99", order.ShippingCost().String())
	assert.Equal(t, "59.99", order.Total().String())
}

func TestOrderAddThenRemoveRestoresTotals(t *testing.T) {
	order := testOrder(t)
	first := testBook(t, "8.25", 10)
	require.NoError(t, order.AddOrderItem(first, 1))
	before := order.Snapshot()
	beforeTotal := order.Total()

	second := testBook(t, "60", 10)
	require.NoError(t, order.AddOrderItem(second, 1))
	require.NoError(t, order.RemoveOrderItem(second.ID()))

	assert.True(t, beforeTotal.Equal(order.Total()))
	assert.Len(t, order.Items(), len(before.Items))
}

func TestOrderAddMergesSameBook(t *testing.T) {
	order := testOrder(t)
	book := testBook(t, "10", 10)

	require.NoError(t, order.AddOrderItem(book, 1))
	require.NoError(t, order.AddOrderItem(book, 2))

	require.Len(t, order.Items(), 1)
	assert.Equal(t, 3, order.Item(book.ID()).Quantity())
	assert.Equal(t, "30", order.Subtotal().String())
}

func TestOrderItemMutationRequiresPending(t *testing.T) {
	order := testOrder(t)
	book := testBook(t, "10", 10)
	require.NoError(t, order.AddOrderItem(book, 1))
	require.NoError(t, order.ConfirmOrder())

	err := order.AddOrderItem(book, 1)
	require.ErrorIs(t, err, ErrStateConflict)
	assert.EqualError(t, err, "Cannot add items to an order that is not pending.")
	assert.EqualError(t, order.RemoveOrderItem(book.ID()), "Cannot remove items from an order that is not pending.")
	assert.EqualError(t, order.UpdateOrderItemQuantity(book.ID(), 2), "Cannot update items in an order that is not pending.")
	assert.EqualError(t, order.UpdateShippingAddress(testAddress(t)), "Cannot update shipping address for non-pending orders.")
}

func TestOrderStateMachine(t *testing.T) {
	order := testOrder(t)
	book := testBook(t, "10", 10)

	assert.EqualError(t, order.ConfirmOrder(), "Cannot confirm an order without items.")
	assert.EqualError(t, order.ShipOrder(), "Only confirmed orders can be shipped.")
	assert.Equal(t, OrderStatusPending, order.Status())

	require.NoError(t, order.AddOrderItem(book, 1))
	require.NoError(t, order.ConfirmOrder())
	assert.EqualError(t, order.DeliverOrder(), "Only shipped orders can be delivered.")

	require.NoError(t, order.ShipOrder())
	assert.NotNil(t, order.ShippedDate())
	assert.EqualError(t, order.ConfirmOrder(), "Only pending orders can be confirmed.")

	require.NoError(t, order.DeliverOrder())
	assert.NotNil(t, order.DeliveredDate())

	err := order.CancelOrder()
	assert.True(t, errors.Is(err, ErrStateConflict))
	assert.EqualError(t, err, "Cannot cancel a delivered order.")
	assert.Equal(t, OrderStatusDelivered, order.Status())
}

func TestOrderCancelFromNonDelivered(t *testing.T) {
	for _, steps := range [][]func(*Order) error{
		{},
		{(*Order).ConfirmOrder},
		{(*Order).ConfirmOrder, (*Order).ShipOrder},
	} {
		order := testOrder(t)
		require.NoError(t, order.AddOrderItem(testBook(t, "10", 10), 1))
		for _, step := range steps {
			require.NoError(t, step(order))
		}
		require.NoError(t, order.CancelOrder())
		assert.Equal(t, OrderStatusCancelled, order.Status())
	}
}

func TestRestoreOrderRecomputesTotals(t *testing.T) {
	order := testOrder(t)
	require.NoError(t, order.AddOrderItem(testBook(t, "19.99", 10), 3))

	restored := RestoreOrder(order.Snapshot())
	assert.True(t, order.Total().Equal(restored.Total()))
	assert.Equal(t, order.Snapshot(), restored.Snapshot())
}

func TestOrderItemValidation(t *testing.T) {
	_, err := NewOrderItem("", "b", decimal.Zero, 1)
	assert.EqualError(t, err, "Order ID cannot be empty.")
	_, err = NewOrderItem("o", "", decimal.Zero, 1)
	assert.EqualError(t, err, "Book ID cannot be empty.")
	_, err = NewOrderItem("o", "b", decimal.NewFromInt(-1), 1)
	assert.EqualError(t, err, "Unit price cannot be negative.")
	_, err = NewOrderItem("o", "b", decimal.Zero, 0)
	assert.EqualError(t, err, "Quantity must be positive.")

	item, err := NewOrderItem("o", "b", decimal.RequireFromString("2.5"), 4)
	require.NoError(t, err)
	assert.Equal(t, "10", item.TotalPrice().String())
	require.NoError(t, item.UpdateUnitPrice(decimal.NewFromInt(3)))
	assert.Equal(t, "12", item.TotalPrice().String())
}

func TestInsufficientStockError(t *testing.T) {
	err := &InsufficientStockError{Title: "Dune", Available: 2, Requested: 5}
	assert.EqualError(t, err, "Insufficient stock for book 'Dune'. Available: 2, Requested: 5")
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestParseEnums(t *testing.T) {
	s, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, s)

	s, err = ParseOrderStatus("5")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, s)

	_, err = ParseOrderStatus("9")
	assert.Error(t, err)
	assert.Equal(t, "9", OrderStatus(9).String())

	c, err := ParseBookCategory("ScienceFiction")
	require.NoError(t, err)
	assert.Equal(t, CategoryScienceFiction, c)

	var m PaymentMethod
	require.NoError(t, m.UnmarshalText([]byte("PayPal")))
	assert.Equal(t, PaymentPayPal, m)
}
