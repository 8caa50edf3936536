package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/go-bookstore/internal/domain"
)

type AddressDTO struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

func (a AddressDTO) toDomain() (domain.Address, error) {
	return domain.NewAddress(a.Street, a.City, a.State, a.ZipCode, a.Country)
}

func toAddressDTO(a domain.Address) AddressDTO {
	return AddressDTO{
		Street:  a.Street(),
		City:    a.City(),
		State:   a.State(),
		ZipCode: a.ZipCode(),
		Country: a.Country(),
	}
}

type BookDTO struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Author        string              `json:"author"`
	ISBN          string              `json:"isbn"`
	Description   string              `json:"description"`
	Price         decimal.Decimal     `json:"price"`
	StockQuantity int                 `json:"stock_quantity"`
	Category      domain.BookCategory `json:"category"`
	PublishedDate time.Time           `json:"published_date"`
	Publisher     string              `json:"publisher"`
	Pages         int                 `json:"pages"`
	Status        domain.BookStatus   `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     *time.Time          `json:"updated_at,omitempty"`
}

func toBookDTO(b *domain.Book) BookDTO {
	return BookDTO{
		ID:            b.ID(),
		Title:         b.Title(),
		Author:        b.Author(),
		ISBN:          b.ISBN(),
		Description:   b.Description(),
		Price:         b.Price(),
		StockQuantity: b.StockQuantity(),
		Category:      b.Category(),
		PublishedDate: b.PublishedDate(),
		Publisher:     b.Publisher(),
		Pages:         b.Pages(),
		Status:        b.Status(),
		CreatedAt:     b.CreatedAt(),
		UpdatedAt:     b.UpdatedAt(),
	}
}

type CustomerDTO struct {
	ID               string                `json:"id"`
	FirstName        string                `json:"first_name"`
	LastName         string                `json:"last_name"`
	FullName         string                `json:"full_name"`
	Email            string                `json:"email"`
	PhoneNumber      string                `json:"phone_number"`
	Address          AddressDTO            `json:"address"`
	Status           domain.CustomerStatus `json:"status"`
	RegistrationDate time.Time             `json:"registration_date"`
	LastLoginDate    *time.Time            `json:"last_login_date,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        *time.Time            `json:"updated_at,omitempty"`
}

func toCustomerDTO(c *domain.Customer) CustomerDTO {
	return CustomerDTO{
		ID:               c.ID(),
		FirstName:        c.FirstName(),
		LastName:         c.LastName(),
		FullName:         c.FullName(),
		Email:            c.Email(),
		PhoneNumber:      c.PhoneNumber(),
		Address:          toAddressDTO(c.Address()),
		Status:           c.Status(),
		RegistrationDate: c.RegistrationDate(),
		LastLoginDate:    c.LastLoginDate(),
		CreatedAt:        c.CreatedAt(),
		UpdatedAt:        c.UpdatedAt(),
	}
}

type OrderItemDTO struct {
	ID         string          `json:"id"`
	BookID     string          `json:"book_id"`
	BookTitle  string          `json:"book_title"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type OrderDTO struct {
	ID              string               `json:"id"`
	CustomerID      string               `json:"customer_id"`
	Status          domain.OrderStatus   `json:"status"`
	OrderDate       time.Time            `json:"order_date"`
	ShippedDate     *time.Time           `json:"shipped_date,omitempty"`
	DeliveredDate   *time.Time           `json:"delivered_date,omitempty"`
	ShippingAddress AddressDTO           `json:"shipping_address"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method"`
	Subtotal        decimal.Decimal      `json:"subtotal"`
	Tax             decimal.Decimal      `json:"tax"`
	ShippingCost    decimal.Decimal      `json:"shipping_cost"`
	Total           decimal.Decimal      `json:"total"`
	Notes           string               `json:"notes,omitempty"`
	Items           []OrderItemDTO       `json:"items"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       *time.Time           `json:"updated_at,omitempty"`
}

// toOrderDTO fills item titles from titles, keyed by book id.
func toOrderDTO(o *domain.Order, titles map[string]string) OrderDTO {
	items := make([]OrderItemDTO, 0, o.ItemCount())
	for _, item := range o.Items() {
		items = append(items, OrderItemDTO{
			ID:         item.ID(),
			BookID:     item.BookID(),
			BookTitle:  titles[item.BookID()],
			UnitPrice:  item.UnitPrice(),
			Quantity:   item.Quantity(),
			TotalPrice: item.TotalPrice(),
		})
	}
	return OrderDTO{
		ID:              o.ID(),
		CustomerID:      o.CustomerID(),
		Status:          o.Status(),
		OrderDate:       o.OrderDate(),
		ShippedDate:     o.ShippedDate(),
		DeliveredDate:   o.DeliveredDate(),
		ShippingAddress: toAddressDTO(o.ShippingAddress()),
		PaymentMethod:   o.PaymentMethod(),
		Subtotal:        o.Subtotal(),
		Tax:             o.Tax(),
		ShippingCost:    o.ShippingCost(),
		Total:           o.Total(),
		Notes:           o.Notes(),
		Items:           items,
		CreatedAt:       o.CreatedAt(),
		UpdatedAt:       o.UpdatedAt(),
	}
}
