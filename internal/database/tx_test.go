package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingConn is a driver connection that only records transaction calls.
type countingConn struct {
	mu         sync.Mutex
	begins     int
	commits    int
	rollbacks  int
	commitErrs []error
}

func (c *countingConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("statements not supported")
}

func (c *countingConn) Close() error { return nil }

func (c *countingConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *countingConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.begins++
	return countingTx{c}, nil
}

type countingTx struct{ c *countingConn }

func (t countingTx) Commit() error {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.c.commits++
	if len(t.c.commitErrs) > 0 {
		err := t.c.commitErrs[0]
		t.c.commitErrs = t.c.commitErrs[1:]
		return err
	}
	return nil
}

func (t countingTx) Rollback() error {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.c.rollbacks++
	return nil
}

type countingConnector struct{ conn *countingConn }

func (c countingConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c countingConnector) Driver() driver.Driver                        { return c }
func (c countingConnector) Open(string) (driver.Conn, error)             { return c.conn, nil }

func newCountingDB(t *testing.T, conn *countingConn) *sql.DB {
	t.Helper()
	db := sql.OpenDB(countingConnector{conn})
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestWithRetry(t *testing.T) {
	serialization := &pq.Error{Code: "40001"}
	deadlock := &pq.Error{Code: "40P01"}
	unique := &pq.Error{Code: "23505"}
	boom := errors.New("boom")

	// failFirst fails the first n attempts with err.
	failFirst := func(n int, err error) func(int) error {
		return func(attempt int) error {
			if attempt <= n {
				return err
			}
			return nil
		}
	}

	tests := []struct {
		name          string
		maxRetries    int
		fail          func(attempt int) error
		commitErrs    []error
		wantErr       error
		wantMsg       string
		wantCalls     int
		wantCommits   int
		wantRollbacks int
	}{
		{
			name: "serialization failure retried until success", maxRetries: 3,
			fail: failFirst(2, serialization), wantCalls: 3, wantCommits: 1, wantRollbacks: 2,
		},
		{
			name: "deadlock retried", maxRetries: 3,
			fail: failFirst(1, deadlock), wantCalls: 2, wantCommits: 1, wantRollbacks: 1,
		},
		{
			name: "permanent error returned after one attempt", maxRetries: 3,
			fail: failFirst(1, boom), wantErr: boom, wantCalls: 1, wantRollbacks: 1,
		},
		{
			name: "unique violation not retried", maxRetries: 3,
			fail: failFirst(1, unique), wantErr: unique, wantCalls: 1, wantRollbacks: 1,
		},
		{
			name: "max retries caps attempts", maxRetries: 2,
			fail: failFirst(10, serialization), wantErr: serialization, wantMsg: "max retries (2) exceeded",
			wantCalls: 3, wantRollbacks: 3,
		},
		{
			name: "no retries configured", maxRetries: 0,
			fail: failFirst(10, serialization), wantErr: serialization, wantMsg: "max retries (0) exceeded",
			wantCalls: 1, wantRollbacks: 1,
		},
		{
			name: "retryable commit failure retried", maxRetries: 3,
			fail: failFirst(0, nil), commitErrs: []error{serialization}, wantCalls: 2, wantCommits: 2,
		},
		{
			name: "permanent commit failure returned", maxRetries: 3,
			fail: failFirst(0, nil), commitErrs: []error{boom}, wantErr: boom, wantMsg: "commit transaction",
			wantCalls: 1, wantCommits: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &countingConn{commitErrs: tt.commitErrs}
			db := newCountingDB(t, conn)

			calls := 0
			err := WithRetry(context.Background(), db, TxOptions{MaxRetries: tt.maxRetries}, func(*sql.Tx) error {
				calls++
				return tt.fail(calls)
			})

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.wantMsg != "" {
					assert.ErrorContains(t, err, tt.wantMsg)
				}
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantCalls, conn.begins)
			assert.Equal(t, tt.wantCommits, conn.commits)
			assert.Equal(t, tt.wantRollbacks, conn.rollbacks)
		})
	}
}

func TestWithRetryStopsOnCancelledContext(t *testing.T) {
	conn := &countingConn{}
	db := newCountingDB(t, conn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithRetry(ctx, db, DefaultTxOptions(), func(*sql.Tx) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
	assert.Zero(t, conn.begins)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	conn := &countingConn{}
	db := newCountingDB(t, conn)
	boom := errors.New("boom")

	err := WithTransaction(context.Background(), db, DefaultTxOptions(), func(*sql.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, conn.rollbacks)
	assert.Zero(t, conn.commits)

	require.NoError(t, WithTransaction(context.Background(), db, DefaultTxOptions(), func(*sql.Tx) error { return nil }))
	assert.Equal(t, 1, conn.commits)
}
