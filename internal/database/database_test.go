package database

import (
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      ErrorClass
		retryable bool
	}{
		{"nil", nil, ErrorClassPermanent, false},
		{"plain", errors.New("boom"), ErrorClassPermanent, false},
		{"pq serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization, true},
		{"pq deadlock wrapped", fmt.Errorf("update book: %w", &pq.Error{Code: "40P01"}), ErrorClassDeadlock, true},
		{"pq unique", &pq.Error{Code: "23505"}, ErrorClassPermanent, false},
		{"pgx lock", &pgconn.PgError{Code: "55P03"}, ErrorClassTransient, true},
		{"pgx fk", &pgconn.PgError{Code: "23503"}, ErrorClassPermanent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "22001"}))
}

func TestLoadEmbeddedMigrations(t *testing.T) {
	migrations, err := LoadMigrations(migrationsFS)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, "init", migrations[0].Name)
	assert.Contains(t, migrations[0].UpSQL, "CREATE TABLE books")
	assert.Contains(t, migrations[0].DownSQL, "DROP TABLE IF EXISTS books")
}

func TestLoadMigrationsValidation(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
	}{
		{"empty", fstest.MapFS{}},
		{"bad name", fstest.MapFS{"migrations/init.up.sql": {Data: []byte("SELECT 1")}}},
		{"missing down", fstest.MapFS{"migrations/0001_a.up.sql": {Data: []byte("SELECT 1")}}},
		{"empty body", fstest.MapFS{
			"migrations/0001_a.up.sql":   {Data: []byte("  ")},
			"migrations/0001_a.down.sql": {Data: []byte("SELECT 1")},
		}},
		{"name mismatch", fstest.MapFS{
			"migrations/0001_a.up.sql":   {Data: []byte("SELECT 1")},
			"migrations/0001_b.down.sql": {Data: []byte("SELECT 1")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.files)
			assert.Error(t, err)
		})
	}
}

func TestLoadMigrationsOrdersByVersion(t *testing.T) {
	files := fstest.MapFS{
		"migrations/0002_b.up.sql":   {Data: []byte("SELECT 2")},
		"migrations/0002_b.down.sql": {Data: []byte("SELECT -2")},
		"migrations/0001_a.up.sql":   {Data: []byte("SELECT 1")},
		"migrations/0001_a.down.sql": {Data: []byte("SELECT -1")},
	}

	migrations, err := LoadMigrations(files)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "a", migrations[0].Name)
	assert.Equal(t, "b", migrations[1].Name)
}
