package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type noopDBTX struct{}

func (noopDBTX) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (noopDBTX) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (noopDBTX) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

func TestWithTxRejectsBadHandles(t *testing.T) {
	ctx := context.Background()

	err := WithTx(ctx, nil, func(DBTX) error { return nil })
	assert.Error(t, err)

	err = WithTx(ctx, noopDBTX{}, func(DBTX) error { return nil })
	assert.Error(t, err)
}

func TestWithTxPassesThroughExistingTx(t *testing.T) {
	// A *sql.Tx handle runs fn directly instead of opening a nested
	// transaction.
	var seen DBTX
	tx := &sql.Tx{}
	err := WithTx(context.Background(), tx, func(db DBTX) error {
		seen = db
		return nil
	})
	assert.NoError(t, err)
	assert.Same(t, tx, seen)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(errors.New("plain")))
	assert.False(t, isUniqueViolation(nil))

	pgErr := &pgconn.PgError{Code: "23505"}
	assert.True(t, isUniqueViolation(pgErr))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", pgErr)))

	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
}
