package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Book struct {
	id            string
	title         string
	author        string
	isbn          string
	description   string
	price         decimal.Decimal
	stockQuantity int
	category      BookCategory
	publishedDate time.Time
	publisher     string
	pages         int
	status        BookStatus
	createdAt     time.Time
	updatedAt     *time.Time
}

type NewBookParams struct {
	Title         string
	Author        string
	ISBN          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	Category      BookCategory
	PublishedDate time.Time
	Publisher     string
	Pages         int
}

func NewBook(p NewBookParams) (*Book, error) {
	switch {
	case blank(p.Title):
		return nil, invalid("Title cannot be empty.")
	case blank(p.Author):
		return nil, invalid("Author cannot be empty.")
	case blank(p.ISBN):
		return nil, invalid("ISBN cannot be empty.")
	case p.Price.IsNegative():
		return nil, invalid("Price cannot be negative.")
	case p.StockQuantity < 0:
		return nil, invalid("Stock quantity cannot be negative.")
	case p.Pages <= 0:
		return nil, invalid("Pages must be positive.")
	case !p.Category.Valid():
		return nil, invalid("Invalid book category.")
	}

	return &Book{
		id:            uuid.NewString(),
		title:         p.Title,
		author:        p.Author,
		isbn:          p.ISBN,
		description:   p.Description,
		price:         p.Price,
		stockQuantity: p.StockQuantity,
		category:      p.Category,
		publishedDate: p.PublishedDate,
		publisher:     p.Publisher,
		pages:         p.Pages,
		status:        stockStatus(p.StockQuantity),
		createdAt:     time.Now().UTC(),
	}, nil
}

func (b *Book) ID() string                 { return b.id }
func (b *Book) Title() string              { return b.title }
func (b *Book) Author() string             { return b.author }
func (b *Book) ISBN() string               { return b.isbn }
func (b *Book) Description() string        { return b.description }
func (b *Book) Price() decimal.Decimal     { return b.price }
func (b *Book) StockQuantity() int         { return b.stockQuantity }
func (b *Book) Category() BookCategory     { return b.category }
func (b *Book) PublishedDate() time.Time   { return b.publishedDate }
func (b *Book) Publisher() string          { return b.publisher }
func (b *Book) Pages() int                 { return b.pages }
func (b *Book) Status() BookStatus         { return b.status }
func (b *Book) CreatedAt() time.Time       { return b.createdAt }
func (b *Book) UpdatedAt() *time.Time      { return b.updatedAt }
func (b *Book) IsAvailable() bool          { return b.status == BookStatusAvailable }
func (b *Book) HasStock(quantity int) bool { return b.stockQuantity >= quantity }

// UpdateStock sets the absolute stock level.
func (b *Book) UpdateStock(quantity int) error {
	if quantity < 0 {
		return invalid("Stock quantity cannot be negative.")
	}
	b.stockQuantity = quantity
	b.status = stockStatus(quantity)
	b.touch()
	return nil
}

// ReserveStock takes quantity units out of stock.
func (b *Book) ReserveStock(quantity int) error {
	if quantity <= 0 {
		return invalid("Reservation quantity must be positive.")
	}
	if b.stockQuantity < quantity {
		return invalid("Insufficient stock for reservation.")
	}
	b.stockQuantity -= quantity
	if b.stockQuantity == 0 {
		b.status = BookStatusOutOfStock
	}
	b.touch()
	return nil
}

func (b *Book) UpdatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return invalid("Price cannot be negative.")
	}
	b.price = price
	b.touch()
	return nil
}

func (b *Book) UpdateDetails(title, author, description string, category BookCategory, publisher string, pages int) error {
	switch {
	case blank(title):
		return invalid("Title cannot be empty.")
	case blank(author):
		return invalid("Author cannot be empty.")
	case pages <= 0:
		return invalid("Pages must be positive.")
	case !category.Valid():
		return invalid("Invalid book category.")
	}

	b.title = title
	b.author = author
	b.description = description
	b.category = category
	b.publisher = publisher
	b.pages = pages
	b.touch()
	return nil
}

func (b *Book) touch() {
	now := time.Now().UTC()
	b.updatedAt = &now
}

func stockStatus(quantity int) BookStatus {
	if quantity > 0 {
		return BookStatusAvailable
	}
	return BookStatusOutOfStock
}

// BookState is the persisted form of a Book.
type BookState struct {
	ID            string
	Title         string
	Author        string
	ISBN          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	Category      BookCategory
	PublishedDate time.Time
	Publisher     string
	Pages         int
	Status        BookStatus
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

func (b *Book) Snapshot() BookState {
	return BookState{
		ID:            b.id,
		Title:         b.title,
		Author:        b.author,
		ISBN:          b.isbn,
		Description:   b.description,
		Price:         b.price,
		StockQuantity: b.stockQuantity,
		Category:      b.category,
		PublishedDate: b.publishedDate,
		Publisher:     b.publisher,
		Pages:         b.pages,
		Status:        b.status,
		CreatedAt:     b.createdAt,
		UpdatedAt:     copyTime(b.updatedAt),
	}
}

// RestoreBook rebuilds a Book from storage without re-running validation.
func RestoreBook(s BookState) *Book {
	return &Book{
		id:            s.ID,
		title:         s.Title,
		author:        s.Author,
		isbn:          s.ISBN,
		description:   s.Description,
		price:         s.Price,
		stockQuantity: s.StockQuantity,
		category:      s.Category,
		publishedDate: s.PublishedDate,
		publisher:     s.Publisher,
		pages:         s.Pages,
		status:        s.Status,
		createdAt:     s.CreatedAt,
		updatedAt:     copyTime(s.UpdatedAt),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
