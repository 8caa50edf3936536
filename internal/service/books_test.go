package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/go-bookstore/internal/domain"
)

func TestCreateBookRejectsDuplicateISBN(t *testing.T) {
	h := newHarness(t)
	h.book(t, "A Wizard of Earthsea", "isbn-1", "10", 1)

	_, err := h.svc.CreateBook(context.Background(), CreateBookCommand{
		Title: "Copy", Author: "Someone", ISBN: "isbn-1", Price: decimal.NewFromInt(1), Pages: 1,
	})
	assert.EqualError(t, err, "Book with ISBN isbn-1 already exists")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateBookValidation(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateBook(context.Background(), CreateBookCommand{Author: "a", ISBN: "i", Pages: 1})
	assert.EqualError(t, err, "Title cannot be empty.")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateBookRequiresCategory(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateBook(context.Background(), CreateBookCommand{
		Title: "Untitled", Author: "a", ISBN: "isbn-cat", Price: decimal.NewFromInt(1), Pages: 1,
	})
	assert.EqualError(t, err, "Invalid book category.")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateBook(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	book := h.book(t, "The Tombs of Atuan", "isbn-2", "10", 4)

	_, err := h.svc.GetBookByID(ctx, book.ID)
	require.NoError(t, err)

	got, err := h.svc.UpdateBook(ctx, UpdateBookCommand{
		ID:            book.ID,
		Title:         "The Tombs of Atuan (revised)",
		Author:        book.Author,
		Price:         decimal.RequireFromString("11.50"),
		StockQuantity: 0,
		Category:      domain.CategoryFantasy,
		Publisher:     "Atheneum",
		Pages:         180,
	})
	require.NoError(t, err)
	assert.Equal(t, "The Tombs of Atuan (revised)", got.Title)
	assert.Equal(t, domain.BookStatusOutOfStock, got.Status)
	assert.True(t, decimal.RequireFromString("11.50").Equal(got.Price))
	assert.NotNil(t, got.UpdatedAt)
	assert.Contains(t, h.cache.invalidated, book.ID)

	cached, err := h.svc.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Title, cached.Title)

	_, err = h.svc.UpdateBook(ctx, UpdateBookCommand{ID: "nope", Title: "t", Author: "a", Pages: 1})
	assert.EqualError(t, err, "Book with ID nope not found")
}

func TestDeleteBook(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ordered := h.book(t, "The Other Wind", "isbn-3", "10", 4)
	loose := h.book(t, "Searoad", "isbn-4", "10", 4)
	customer := h.customer(t, "ged@example.com")
	h.order(t, customer.ID, CreateOrderItem{BookID: ordered.ID, Quantity: 1})

	deleted, err := h.svc.DeleteBook(ctx, ordered.ID)
	assert.False(t, deleted)
	assert.EqualError(t, err, "Cannot delete book with ID "+ordered.ID+". Book is referenced by existing orders.")

	deleted, err = h.svc.DeleteBook(ctx, loose.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = h.svc.DeleteBook(ctx, loose.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = h.svc.GetBookByID(ctx, loose.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetBookByIDReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	book := h.book(t, "Malafrena", "isbn-5", "10", 4)

	first, err := h.svc.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, h.cache.sets)
	units := len(h.factory.units)

	second, err := h.svc.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, units, len(h.factory.units), "cache hit must not open a unit of work")
}

func TestListBooks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	for i, title := range []string{"Orsinian Tales", "The Beginning Place", "Lavinia", "Changing Planes"} {
		h.book(t, title, "isbn-l"+string(rune('a'+i)), "10", i)
	}

	page, err := h.svc.ListBooks(ctx, BookQuery{PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 3)

	page, err = h.svc.ListBooks(ctx, BookQuery{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	page, err = h.svc.ListBooks(ctx, BookQuery{Search: "planes"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Changing Planes", page.Items[0].Title)

	page, err = h.svc.ListBooks(ctx, BookQuery{Status: domain.BookStatusOutOfStock})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Orsinian Tales", page.Items[0].Title)

	max := decimal.NewFromInt(5)
	page, err = h.svc.ListBooks(ctx, BookQuery{MaxPrice: &max})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
