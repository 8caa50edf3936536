package database

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
)

// Beginner is satisfied by *sql.DB and *sql.Conn.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	ReadOnly       bool
	MaxRetries     int
}

func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		ReadOnly:       false,
		MaxRetries:     3,
	}
}

func (o TxOptions) sqlOptions() *sql.TxOptions {
	return &sql.TxOptions{
		Isolation: o.IsolationLevel,
		ReadOnly:  o.ReadOnly,
	}
}

func WithTransaction(ctx context.Context, db Beginner, opts TxOptions, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts.sqlOptions())
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// WithRetry reruns fn in a fresh transaction while it fails with a
// transient, deadlock or serialization error.
func WithRetry(ctx context.Context, db Beginner, opts TxOptions, fn func(*sql.Tx) error) error {
	var lastErr error
	backoff := 50 * time.Millisecond

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tx, err := db.BeginTx(ctx, opts.sqlOptions())
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		err = fn(tx)
		if err == nil {
			err = tx.Commit()
			if err == nil {
				return nil
			}
			if !IsRetryable(err) {
				return fmt.Errorf("commit transaction: %w", err)
			}
		} else {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
			}
			if !IsRetryable(err) {
				return err
			}
		}

		if attempt == opts.MaxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", opts.MaxRetries, err)
		}

		lastErr = err
		sleepDuration := backoff + time.Duration(rand.Int63n(int64(backoff/4)))

		log.WithFields(log.Fields{
			"component": "database",
			"attempt":   attempt + 1,
			"class":     ClassifyError(err).String(),
			"backoff":   sleepDuration,
		}).Debug("retrying transaction")

		select {
		case <-time.After(sleepDuration):
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff *= 2
	}

	return lastErr
}
