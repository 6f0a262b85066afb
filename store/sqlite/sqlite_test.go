package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/inventory"
	"github.com/warp/stock-ledger/inventory/storetest"
	"github.com/warp/stock-ledger/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLite_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) inventory.Store {
		return newTestStore(t)
	})
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "inventory.db")

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.AddProduct(ctx, inventory.Product{ID: "p1", Name: "Widget"}))
	require.NoError(t, store.AddLocation(ctx, inventory.Location{ID: "a", Name: "Aisle A"}))
	_, err = store.AddMovement(ctx, inventory.NewMovement{ProductID: "p1", ToLocation: inventory.LocationRef("a"), Quantity: 12})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	lines, err := inventory.NewEngine(reopened, inventory.StrategyGrouped).Report(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(12), lines[0].Quantity)

	m, err := reopened.AddMovement(ctx, inventory.NewMovement{ProductID: "p1", FromLocation: inventory.LocationRef("a"), Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, inventory.MovementID(2), m.ID, "ids continue after reopen")
}

func TestSQLite_TimestampRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fixed := time.Date(2025, time.June, 1, 12, 0, 0, 123456789, time.UTC)
	store.Now = func() time.Time { return fixed }

	_, err := store.AddMovement(ctx, inventory.NewMovement{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	movements, err := store.ListMovements(ctx)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.True(t, fixed.Equal(movements[0].Timestamp))
}

func TestSQLite_ClosedStoreIsUnavailable(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.ListProducts(ctx)
	assert.ErrorIs(t, err, inventory.ErrStoreUnavailable)

	err = store.AddProduct(ctx, inventory.Product{ID: "p1", Name: "Widget"})
	assert.ErrorIs(t, err, inventory.ErrStoreUnavailable)

	_, err = inventory.NewEngine(store, inventory.StrategyExhaustive).Report(ctx)
	assert.ErrorIs(t, err, inventory.ErrStoreUnavailable)

	assert.ErrorIs(t, store.Ping(ctx), inventory.ErrStoreUnavailable)
}
