// Package storetest is a conformance suite for inventory.Store
// implementations. Each implementation's tests call Run with a factory
// that returns a fresh, empty store.
package storetest

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/inventory"
)

// Factory returns a new empty store. It should register its own cleanup.
type Factory func(t *testing.T) inventory.Store

// Run executes every conformance test against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s inventory.Store)
	}{
		{"DuplicateProductRejected", testDuplicateProduct},
		{"DuplicateLocationRejected", testDuplicateLocation},
		{"ListsKeepInsertionOrder", testInsertionOrder},
		{"MovementIDsAndTimestamps", testMovementIdentity},
		{"MovementNullableLocations", testNullableLocations},
		{"QuantityTakenAsGiven", testQuantityAsGiven},
		{"SumQuantityByRole", testSumQuantity},
		{"SumQuantityZeroWhenEmpty", testSumQuantityEmpty},
		{"Exists", testExists},
		{"NetBalancesMatchSums", testNetBalances},
		{"SumOverflowFails", testSumOverflow},
		{"ReportMatchesHistory", testReportMatchesHistory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func loc(s string) *inventory.LocationID { return inventory.LocationRef(s) }

func testDuplicateProduct(t *testing.T, s inventory.Store) {
	ctx := context.Background()

	require.NoError(t, s.AddProduct(ctx, inventory.Product{ID: "p1", Name: "Widget"}))
	err := s.AddProduct(ctx, inventory.Product{ID: "p1", Name: "Gadget"})

	require.ErrorIs(t, err, inventory.ErrDuplicateKey)
	var dup *inventory.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "product", dup.Kind)
	assert.Equal(t, "p1", dup.ID)

	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []inventory.Product{{ID: "p1", Name: "Widget"}}, products)
}

func testDuplicateLocation(t *testing.T, s inventory.Store) {
	ctx := context.Background()

	require.NoError(t, s.AddLocation(ctx, inventory.Location{ID: "wh", Name: "Warehouse"}))
	err := s.AddLocation(ctx, inventory.Location{ID: "wh", Name: "Other"})

	require.ErrorIs(t, err, inventory.ErrDuplicateKey)
	var dup *inventory.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "location", dup.Kind)

	locations, err := s.ListLocations(ctx)
	require.NoError(t, err)
	assert.Len(t, locations, 1)
}

func testInsertionOrder(t *testing.T, s inventory.Store) {
	ctx := context.Background()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, s.AddProduct(ctx, inventory.Product{ID: inventory.ProductID(id), Name: id}))
		require.NoError(t, s.AddLocation(ctx, inventory.Location{ID: inventory.LocationID(id), Name: id}))
	}

	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	locations, err := s.ListLocations(ctx)
	require.NoError(t, err)

	require.Len(t, products, 3)
	require.Len(t, locations, 3)
	assert.Equal(t, inventory.ProductID("zeta"), products[0].ID)
	assert.Equal(t, inventory.ProductID("alpha"), products[1].ID)
	assert.Equal(t, inventory.ProductID("mid"), products[2].ID)
	assert.Equal(t, inventory.LocationID("zeta"), locations[0].ID)
	assert.Equal(t, inventory.LocationID("mid"), locations[2].ID)
}

func testMovementIdentity(t *testing.T, s inventory.Store) {
	ctx := context.Background()
	before := time.Now().UTC().Add(-time.Second)

	first, err := s.AddMovement(ctx, inventory.NewMovement{ProductID: "p1", ToLocation: loc("a"), Quantity: 1})
	require.NoError(t, err)
	second, err := s.AddMovement(ctx, inventory.NewMovement{ProductID: "p1", ToLocation: loc("a"), Quantity: 2})
	require.NoError(t, err)

	assert.Greater(t, second.ID, first.ID, "ids increase")
	assert.Equal(t, time.UTC, first.Timestamp.Location())
	assert.False(t, first.Timestamp.Before(before), "timestamp defaults to creation time")

	movements, err := s.ListMovements(ctx)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, first.ID, movements[0].ID)
	assert.Equal(t, second.ID, movements[1].ID)
	assert.Equal(t, int64(2), movements[1].Quantity)
	assert.WithinDuration(t, first.Timestamp, movements[0].Timestamp, time.Millisecond)
}

func testNullableLocations(t *testing.T, s inventory.Store) {
	ctx := context.Background()

	_, err := s.AddMovement(ctx, inventory.NewMovement{ProductID: "p1", ToLocation: loc("a"), Quantity: 1})
	require.NoError(t, err)
	_, err = s.AddMovement(ctx, inventory.NewMovement{ProductID: "p1", FromLocation: loc("a"), Quantity: 1})
	require.NoError(t, err)
	_, err = s.AddMovement(ctx, inventory.NewMovement{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	movements, err := s.ListMovements(ctx)
	require.NoError(t, err)
	require.Len(t, movements, 3)

	assert.Nil(t, movements[0].FromLocation)
	require.NotNil(t, movements[0].ToLocation)
	assert.Equal(t, inventory.LocationID("a"), *movements[0].ToLocation)

	require.NotNil(t, movements[1].FromLocation)
	assert.Nil(t, movements[1].ToLocation)

	assert.True(t, movements[2].IsEmpty())
}

func testQuantityAsGiven(t *testing.T, s inventory.Store) {
	ctx := context.Background()

	for _, qty := range []int64{0, -7, 1 << 40} {
		m, err := s.AddMovement(ctx, inventory.NewMovement{ProductID: "p1", ToLocation: loc("a"), Quantity: qty})
		require.NoError(t, err)
		assert.Equal(t, qty, m.Quantity)
	}

	sum, err := s.SumQuantity(ctx, "p1", "a", inventory.RoleIncoming)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40-7), sum)
}

func testSumQuantity(t *testing.T, s inventory.Store) {
	ctx := context.Background()

	moves := []inventory.NewMovement{
		{ProductID: "p1", ToLocation: loc("a"), Quantity: 10},
		{ProductID: "p1", FromLocation: loc("a"), ToLocation: loc("b"), Quantity: 4},
		{ProductID: "p1", FromLocation: loc("b"), Quantity: 1},
		{ProductID: "p2", ToLocation: loc("a"), Quantity: 100},
	}
	for _, m := range moves {
		_, err := s.AddMovement(ctx, m)
		require.NoError(t, err)
	}

	cases := []struct {
		product inventory.ProductID
		loc     inventory.LocationID
		role    inventory.Role
		want    int64
	}{
		{"p1", "a", inventory.RoleIncoming, 10},
		{"p1", "a", inventory.RoleOutgoing, 4},
		{"p1", "b", inventory.RoleIncoming, 4},
		{"p1", "b", inventory.RoleOutgoing, 1},
		{"p2", "a", inventory.RoleIncoming, 100},
		{"p2", "a", inventory.RoleOutgoing, 0},
		{"p2", "b", inventory.RoleIncoming, 0},
	}
	for _, c := range cases {
		got, err := s.SumQuantity(ctx, c.product, c.loc, c.role)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s@%s %s", c.product, c.loc, c.role)
	}
}

func testSumQuantityEmpty(t *testing.T, s inventory.Store) {
	ctx := context.Background()

	for _, role := range []inventory.Role{inventory.RoleIncoming, inventory.RoleOutgoing} {
		got, err := s.SumQuantity(ctx, "nope", "nowhere", role)
		require.NoError(t, err)
		assert.Zero(t, got)
	}
}

func testExists(t *testing.T, s inventory.Store) {
	ctx := context.Background()

	require.NoError(t, s.AddProduct(ctx, inventory.Product{ID: "p1", Name: "Widget"}))
	require.NoError(t, s.AddLocation(ctx, inventory.Location{ID: "a", Name: "A"}))

	ok, err := s.ProductExists(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ProductExists(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.LocationExists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.LocationExists(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok, "product ids are not location ids")
}

func testNetBalances(t *testing.T, s inventory.Store) {
	agg, ok := s.(inventory.AggregateStore)
	if !ok {
		t.Skip("store does not implement AggregateStore")
	}
	ctx := context.Background()

	moves := []inventory.NewMovement{
		{ProductID: "p1", ToLocation: loc("a"), Quantity: 10},
		{ProductID: "p1", FromLocation: loc("a"), ToLocation: loc("b"), Quantity: 4},
		{ProductID: "p1", FromLocation: loc("b"), Quantity: 1},
		{ProductID: "p2", Quantity: 50},
		{ProductID: "p2", FromLocation: loc("c"), Quantity: 3},
	}
	for _, m := range moves {
		_, err := s.AddMovement(ctx, m)
		require.NoError(t, err)
	}

	rows, err := agg.NetBalances(ctx)
	require.NoError(t, err)

	got := map[[2]string][2]int64{}
	for _, r := range rows {
		k := [2]string{string(r.ProductID), string(r.LocationID)}
		v := got[k]
		got[k] = [2]int64{v[0] + r.Incoming, v[1] + r.Outgoing}
	}
	assert.Equal(t, map[[2]string][2]int64{
		{"p1", "a"}: {10, 4},
		{"p1", "b"}: {4, 1},
		{"p2", "c"}: {0, 3},
	}, got)
}

func testSumOverflow(t *testing.T, s inventory.Store) {
	ctx := context.Background()

	for _, qty := range []int64{math.MaxInt64, 1} {
		_, err := s.AddMovement(ctx, inventory.NewMovement{ProductID: "p1", FromLocation: loc("a"), ToLocation: loc("b"), Quantity: qty})
		require.NoError(t, err)
	}

	for _, c := range []struct {
		loc  inventory.LocationID
		role inventory.Role
	}{{"b", inventory.RoleIncoming}, {"a", inventory.RoleOutgoing}} {
		_, err := s.SumQuantity(ctx, "p1", c.loc, c.role)
		assert.ErrorIs(t, err, inventory.ErrStoreUnavailable, "%s %s", c.loc, c.role)
	}

	if agg, ok := s.(inventory.AggregateStore); ok {
		rows, err := agg.NetBalances(ctx)
		assert.ErrorIs(t, err, inventory.ErrStoreUnavailable)
		assert.Nil(t, rows)
	}

	require.NoError(t, s.AddProduct(ctx, inventory.Product{ID: "p1", Name: "Widget"}))
	require.NoError(t, s.AddLocation(ctx, inventory.Location{ID: "b", Name: "B"}))
	lines, err := inventory.NewEngine(s, inventory.StrategyExhaustive).Report(ctx)
	assert.Error(t, err)
	assert.Nil(t, lines)
}

// testReportMatchesHistory grows a random history in batches and checks
// after each batch that the report has no zero lines, agrees with a
// direct recomputation from ListMovements, and is the same under both
// strategies.
func testReportMatchesHistory(t *testing.T, s inventory.Store) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	products := []inventory.ProductID{"p1", "p2", "p3"}
	locations := []inventory.LocationID{"a", "b", "c", "d"}
	endpoints := []string{"", "orphan", "a", "b", "c", "d"}
	for _, p := range products {
		require.NoError(t, s.AddProduct(ctx, inventory.Product{ID: p, Name: "name-" + string(p)}))
	}
	for _, l := range locations {
		require.NoError(t, s.AddLocation(ctx, inventory.Location{ID: l, Name: "name-" + string(l)}))
	}

	for batch := 0; batch < 6; batch++ {
		for i := 0; i < 15; i++ {
			_, err := s.AddMovement(ctx, inventory.NewMovement{
				ProductID:    products[rng.Intn(len(products))],
				FromLocation: loc(endpoints[rng.Intn(len(endpoints))]),
				ToLocation:   loc(endpoints[rng.Intn(len(endpoints))]),
				Quantity:     int64(rng.Intn(21) - 5),
			})
			require.NoError(t, err)
		}

		lines, err := inventory.NewEngine(s, inventory.StrategyExhaustive).Report(ctx)
		require.NoError(t, err)
		if _, ok := s.(inventory.AggregateStore); ok {
			grouped, err := inventory.NewEngine(s, inventory.StrategyGrouped).Report(ctx)
			require.NoError(t, err)
			require.Equal(t, lines, grouped, "batch %d", batch)
		}

		movements, err := s.ListMovements(ctx)
		require.NoError(t, err)

		reported := map[[2]string]int64{}
		for _, l := range lines {
			require.NotZero(t, l.Quantity, "batch %d: zero line", batch)
			reported[[2]string{string(l.ProductID), string(l.LocationID)}] = l.Quantity
		}
		for _, p := range products {
			for _, l := range locations {
				want := replay(movements, p, l)
				assert.Equal(t, want, reported[[2]string{string(p), string(l)}], "batch %d: %s@%s", batch, p, l)
			}
		}
	}
}

func replay(movements []inventory.Movement, p inventory.ProductID, l inventory.LocationID) int64 {
	var balance int64
	for _, m := range movements {
		if m.ProductID != p {
			continue
		}
		if m.ToLocation != nil && *m.ToLocation == l {
			balance += m.Quantity
		}
		if m.FromLocation != nil && *m.FromLocation == l {
			balance -= m.Quantity
		}
	}
	return balance
}
