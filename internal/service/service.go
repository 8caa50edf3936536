package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/safar/go-bookstore/internal/cache"
	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/events"
	"github.com/safar/go-bookstore/internal/logging"
	"github.com/safar/go-bookstore/internal/metrics"
	"github.com/safar/go-bookstore/internal/repository"
)

const defaultProducer = "bookstore-api"

// Service runs catalog, customer and order workflows. Every call opens its
// own UnitOfWork, so a Service is safe for concurrent use.
type Service struct {
	uows      repository.Factory
	books     cache.Cache[BookDTO]
	publisher events.Publisher
	metrics   *metrics.Workflow
	log       *log.Entry
	producer  string
}

type Option func(*Service)

func WithBookCache(c cache.Cache[BookDTO]) Option {
	return func(s *Service) { s.books = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Workflow) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *log.Entry) Option {
	return func(s *Service) { s.log = l }
}

// WithProducer names the service in published event envelopes.
func WithProducer(name string) Option {
	return func(s *Service) { s.producer = name }
}

func New(uows repository.Factory, opts ...Option) *Service {
	s := &Service{
		uows:      uows,
		books:     cache.Noop[BookDTO]{},
		publisher: events.Noop{},
		log:       logging.Discard(),
		producer:  defaultProducer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "service")
	return s
}

// observe is deferred by workflows with a pointer to their named error.
func (s *Service) observe(workflow string, start time.Time, errp *error, fields log.Fields) {
	err := *errp
	s.metrics.Observe(workflow, start, err)
	if err != nil {
		s.log.WithFields(fields).WithField("workflow", workflow).WithError(err).Warn("workflow failed")
	}
}

// inTransaction runs fn inside a transaction, then saves and commits. Any
// failure before the commit rolls back exactly once and returns fn's error
// unchanged. A failed commit is rolled back by the UnitOfWork itself.
func (s *Service) inTransaction(ctx context.Context, u repository.UnitOfWork, workflow string, fn func() error) error {
	if err := u.BeginTransaction(ctx); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(); err != nil {
		s.rollback(ctx, u, workflow)
		return err
	}
	if _, err := u.SaveChanges(ctx); err != nil {
		s.rollback(ctx, u, workflow)
		return err
	}
	if err := u.Commit(ctx); err != nil {
		s.metrics.Rollback(workflow)
		return err
	}
	return nil
}

func (s *Service) rollback(ctx context.Context, u repository.UnitOfWork, workflow string) {
	s.metrics.Rollback(workflow)
	if err := u.Rollback(ctx); err != nil {
		s.log.WithField("workflow", workflow).WithError(err).Error("rollback failed")
	}
}

func (s *Service) publish(ctx context.Context, eventType, orderID string, payload any) {
	entry := s.log.WithFields(log.Fields{"event_type": eventType, "order_id": orderID})
	env, err := events.NewEnvelope(eventType, s.producer, orderID, payload)
	if err != nil {
		entry.WithError(err).Error("build event")
		return
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		entry.WithError(err).Warn("publish event")
	}
}

func (s *Service) invalidateBooks(ctx context.Context, ids ...string) {
	if err := s.books.Invalidate(ctx, ids...); err != nil {
		s.log.WithField("book_ids", ids).WithError(err).Warn("invalidate cached books")
	}
}

// notFound turns a repository miss into the entity's NotFoundError.
func notFound(err error, entity, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.NotFoundError{Entity: entity, ID: id}
	}
	return err
}

// uniqueConflict reports conflict when a write lost a uniqueness race the
// pre-check could not see.
func uniqueConflict(err, conflict error) error {
	if errors.Is(err, repository.ErrDuplicateKey) {
		return conflict
	}
	return err
}

func (s *Service) open(ctx context.Context) (repository.UnitOfWork, error) {
	u, err := s.uows.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("open unit of work: %w", err)
	}
	return u, nil
}

func closeUnit(u repository.UnitOfWork, entry *log.Entry) {
	if err := u.Close(); err != nil {
		entry.WithError(err).Warn("close unit of work")
	}
}
