package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/events"
	"github.com/safar/go-bookstore/internal/metrics"
	"github.com/safar/go-bookstore/internal/repository"
	"github.com/safar/go-bookstore/internal/store/memory"
)

// recordingUnit counts the transaction calls a workflow makes. saveErr and
// commitErr make SaveChanges and Commit fail.
type recordingUnit struct {
	repository.UnitOfWork
	begins, commits, rollbacks int
	saveErr, commitErr         error
}

func (r *recordingUnit) BeginTransaction(ctx context.Context) error {
	r.begins++
	return r.UnitOfWork.BeginTransaction(ctx)
}

func (r *recordingUnit) Commit(ctx context.Context) error {
	r.commits++
	if r.commitErr != nil {
		// A failed commit leaves nothing open, as the real units do.
		_ = r.UnitOfWork.Rollback(ctx)
		return r.commitErr
	}
	return r.UnitOfWork.Commit(ctx)
}

func (r *recordingUnit) SaveChanges(ctx context.Context) (int, error) {
	if r.saveErr != nil {
		return 0, r.saveErr
	}
	return r.UnitOfWork.SaveChanges(ctx)
}

func (r *recordingUnit) Rollback(ctx context.Context) error {
	r.rollbacks++
	return r.UnitOfWork.Rollback(ctx)
}

type recordingFactory struct {
	store *memory.Store
	units []*recordingUnit

	// Copied into every unit opened afterwards.
	saveErr, commitErr error
}

func (f *recordingFactory) New(ctx context.Context) (repository.UnitOfWork, error) {
	u, err := f.store.New(ctx)
	if err != nil {
		return nil, err
	}
	rec := &recordingUnit{UnitOfWork: u, saveErr: f.saveErr, commitErr: f.commitErr}
	f.units = append(f.units, rec)
	return rec, nil
}

func (f *recordingFactory) last() *recordingUnit {
	return f.units[len(f.units)-1]
}

type mapCache struct {
	mu          sync.Mutex
	values      map[string]BookDTO
	sets        int
	invalidated []string
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string]BookDTO)}
}

func (c *mapCache) Get(_ context.Context, id string) (BookDTO, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[id]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, id string, v BookDTO) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.values[id] = v
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.values, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []events.Envelope
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, env)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.sent))
	for i, env := range p.sent {
		out[i] = env.EventType
	}
	return out
}

type harness struct {
	svc       *Service
	factory   *recordingFactory
	cache     *mapCache
	publisher *recordingPublisher
	registry  *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		factory:   &recordingFactory{store: memory.NewStore()},
		cache:     newMapCache(),
		publisher: &recordingPublisher{},
		registry:  prometheus.NewRegistry(),
	}
	h.svc = New(h.factory,
		WithBookCache(h.cache),
		WithPublisher(h.publisher),
		WithMetrics(metrics.NewWorkflowWithRegisterer(h.registry)),
	)
	return h
}

func testAddress() AddressDTO {
	return AddressDTO{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"}
}

func (h *harness) book(t *testing.T, title, isbn, price string, stock int) BookDTO {
	t.Helper()
	dto, err := h.svc.CreateBook(context.Background(), CreateBookCommand{
		Title:         title,
		Author:        "Ursula K. Le Guin",
		ISBN:          isbn,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Category:      domain.CategoryFantasy,
		PublishedDate: time.Date(1968, 9, 1, 0, 0, 0, 0, time.UTC),
		Publisher:     "Parnassus",
		Pages:         183,
	})
	require.NoError(t, err)
	return dto
}

func (h *harness) customer(t *testing.T, email string) CustomerDTO {
	t.Helper()
	dto, err := h.svc.CreateCustomer(context.Background(), CreateCustomerCommand{
		FirstName:   "Ged",
		LastName:    "Sparrowhawk",
		Email:       email,
		PhoneNumber: "555-0101",
		Address:     testAddress(),
	})
	require.NoError(t, err)
	return dto
}

func (h *harness) order(t *testing.T, customerID string, items ...CreateOrderItem) OrderDTO {
	t.Helper()
	dto, err := h.svc.CreateOrder(context.Background(), CreateOrderCommand{
		CustomerID:      customerID,
		ShippingAddress: testAddress(),
		PaymentMethod:   domain.PaymentCreditCard,
		Items:           items,
	})
	require.NoError(t, err)
	return dto
}

func (h *harness) stock(t *testing.T, bookID string) int {
	t.Helper()
	u, err := h.factory.store.New(context.Background())
	require.NoError(t, err)
	defer u.Close()
	b, err := u.Books().GetByID(context.Background(), bookID)
	require.NoError(t, err)
	return b.StockQuantity()
}

type failingFactory struct{}

func (failingFactory) New(context.Context) (repository.UnitOfWork, error) {
	return nil, errors.New("pool exhausted")
}

func TestOpenFailureIsReturned(t *testing.T) {
	svc := New(failingFactory{})
	_, err := svc.GetOrderByID(context.Background(), "x")
	require.ErrorContains(t, err, "pool exhausted")
}
