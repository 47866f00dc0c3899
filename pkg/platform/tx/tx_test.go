package tx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx(t *testing.T) {
	t.Run("nil transaction leaves context untouched", func(t *testing.T) {
		ctx := context.Background()
		assert.Equal(t, ctx, WithTx(ctx, nil))
		_, ok := From(ctx)
		assert.False(t, ok)
	})

	t.Run("stored transaction is returned", func(t *testing.T) {
		stored := &sql.Tx{}
		got, ok := From(WithTx(context.Background(), stored))
		require.True(t, ok)
		assert.Same(t, stored, got)
	})
}

func TestRunJoinsExistingTransaction(t *testing.T) {
	stored := &sql.Tx{}
	ctx := WithTx(context.Background(), stored)
	boom := errors.New("boom")

	var seen *sql.Tx
	err := Run(ctx, nil, func(_ context.Context, tx *sql.Tx) error {
		seen = tx
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Same(t, stored, seen)
}

func TestRunRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, nil, func(context.Context, *sql.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
