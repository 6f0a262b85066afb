package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/config"
	"github.com/warp/stock-ledger/inventory"
	"github.com/warp/stock-ledger/inventory/store"
	"github.com/warp/stock-ledger/store/sqlite"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := openStore(ctx, &config.Config{DBDriver: config.DriverMemory})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &store.Memory{}, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := openStore(ctx, &config.Config{DBDriver: config.DriverSQLite, DBPath: ":memory:"})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &sqlite.Store{}, s)

		require.NoError(t, s.AddProduct(ctx, inventory.Product{ID: "p1", Name: "Widget"}))
		products, err := s.ListProducts(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 1)
	})

	t.Run("postgres bad dsn", func(t *testing.T) {
		_, err := openStore(ctx, &config.Config{DBDriver: config.DriverPostgres, PGDSN: "postgres://localhost:badport/inventory"})
		assert.ErrorIs(t, err, inventory.ErrInvalidInput)
	})
}
