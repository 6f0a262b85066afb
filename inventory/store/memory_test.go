package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/inventory"
	"github.com/warp/stock-ledger/inventory/store"
	"github.com/warp/stock-ledger/inventory/storetest"
)

func TestMemory_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) inventory.Store {
		return store.NewMemory()
	})
}

func TestMemory_UsesClock(t *testing.T) {
	m := store.NewMemory()
	fixed := time.Date(2025, time.March, 10, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	m.Now = func() time.Time { return fixed }

	mv, err := m.AddMovement(context.Background(), inventory.NewMovement{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, time.UTC, mv.Timestamp.Location())
	assert.True(t, fixed.Equal(mv.Timestamp))
}

func TestMemory_ListMovementsReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.AddMovement(ctx, inventory.NewMovement{ProductID: "p1", ToLocation: inventory.LocationRef("a"), Quantity: 3})
	require.NoError(t, err)

	first, err := m.ListMovements(ctx)
	require.NoError(t, err)
	*first[0].ToLocation = "tampered"

	sum, err := m.SumQuantity(ctx, "p1", "a", inventory.RoleIncoming)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum)
}
