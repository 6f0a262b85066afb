package inventory_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/inventory"
	"github.com/warp/stock-ledger/inventory/store"
)

func newTestService(t *testing.T, policy inventory.Policy) (*inventory.Service, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	return inventory.NewService(s, inventory.StrategyExhaustive, policy, zerolog.Nop()), s
}

func TestService_AddProductTwiceFails(t *testing.T) {
	svc, _ := newTestService(t, inventory.DefaultPolicy())
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "p1", "Widget")
	require.NoError(t, err)

	_, err = svc.AddProduct(ctx, "p1", "Widget")
	assert.ErrorIs(t, err, inventory.ErrDuplicateKey)

	products, err := svc.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, []inventory.Product{{ID: "p1", Name: "Widget"}}, products)
}

func TestService_RequiredFields(t *testing.T) {
	svc, _ := newTestService(t, inventory.DefaultPolicy())
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
		want string
	}{
		{"product id", func() error { _, err := svc.AddProduct(ctx, "", "Widget"); return err }, "product_id"},
		{"product name", func() error { _, err := svc.AddProduct(ctx, "p1", "  "); return err }, "product_name"},
		{"location id", func() error { _, err := svc.AddLocation(ctx, "", "Shelf"); return err }, "location_id"},
		{"location name", func() error { _, err := svc.AddLocation(ctx, "l1", ""); return err }, "location_name"},
		{"movement product", func() error {
			_, err := svc.RecordMovement(ctx, inventory.NewMovement{ToLocation: ref("l1"), Quantity: 1})
			return err
		}, "product_id"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.call()
			require.ErrorIs(t, err, inventory.ErrInvalidInput)
			var inv *inventory.InvalidInputError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, c.want, inv.Field)
		})
	}

	products, _ := svc.Products(ctx)
	locations, _ := svc.Locations(ctx)
	movements, _ := svc.Movements(ctx)
	assert.Empty(t, products, "no partial writes")
	assert.Empty(t, locations)
	assert.Empty(t, movements)
}

func TestService_PermissiveReferences(t *testing.T) {
	svc, _ := newTestService(t, inventory.DefaultPolicy())
	ctx := context.Background()

	m, err := svc.RecordMovement(ctx, inventory.NewMovement{ProductID: "ghost", ToLocation: ref("nowhere"), Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, inventory.MovementID(1), m.ID)

	lines, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestService_EnforcedReferences(t *testing.T) {
	policy := inventory.Policy{References: inventory.ReferencesEnforced, EmptyMovements: inventory.EmptyMovementsAllowed}
	svc, _ := newTestService(t, policy)
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "p1", "Widget")
	require.NoError(t, err)
	_, err = svc.AddLocation(ctx, "a", "Aisle A")
	require.NoError(t, err)

	_, err = svc.RecordMovement(ctx, inventory.NewMovement{ProductID: "p2", ToLocation: ref("a"), Quantity: 1})
	var nf *inventory.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "product", nf.Kind)

	_, err = svc.RecordMovement(ctx, inventory.NewMovement{ProductID: "p1", FromLocation: ref("a"), ToLocation: ref("b"), Quantity: 1})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "location", nf.Kind)
	assert.Equal(t, "b", nf.ID)
	assert.True(t, inventory.IsNotFound(err))

	_, err = svc.RecordMovement(ctx, inventory.NewMovement{ProductID: "p1", ToLocation: ref("a"), Quantity: 1})
	require.NoError(t, err)

	movements, err := svc.Movements(ctx)
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestService_EmptyMovementPolicy(t *testing.T) {
	ctx := context.Background()
	empty := inventory.NewMovement{ProductID: "p1", Quantity: 5}

	allow, _ := newTestService(t, inventory.DefaultPolicy())
	_, err := allow.RecordMovement(ctx, empty)
	assert.NoError(t, err)

	reject, mem := newTestService(t, inventory.Policy{
		References:     inventory.ReferencesPermissive,
		EmptyMovements: inventory.EmptyMovementsRejected,
	})
	_, err = reject.RecordMovement(ctx, empty)
	assert.ErrorIs(t, err, inventory.ErrInvalidInput)

	movements, err := mem.ListMovements(ctx)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestService_Balance(t *testing.T) {
	svc, _ := newTestService(t, inventory.DefaultPolicy())
	ctx := context.Background()

	_, err := svc.RecordMovement(ctx, inventory.NewMovement{ProductID: "p1", ToLocation: ref("a"), Quantity: 9})
	require.NoError(t, err)

	got, err := svc.Balance(ctx, "p1", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(9), got)

	_, err = svc.Balance(ctx, "", "a")
	assert.ErrorIs(t, err, inventory.ErrInvalidInput)
}

func TestService_BalanceEnforcedReferences(t *testing.T) {
	policy := inventory.Policy{References: inventory.ReferencesEnforced, EmptyMovements: inventory.EmptyMovementsAllowed}
	svc, _ := newTestService(t, policy)
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "p1", "Widget")
	require.NoError(t, err)
	_, err = svc.AddLocation(ctx, "a", "A")
	require.NoError(t, err)

	got, err := svc.Balance(ctx, "p1", "a")
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = svc.Balance(ctx, "ghost", "a")
	var nf *inventory.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "product", nf.Kind)

	_, err = svc.Balance(ctx, "p1", "nowhere")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "location", nf.Kind)
	assert.Equal(t, "nowhere", nf.ID)
}

func TestService_TrimsIDs(t *testing.T) {
	svc, s := newTestService(t, inventory.DefaultPolicy())
	ctx := context.Background()

	p, err := svc.AddProduct(ctx, " p1 ", " Widget")
	require.NoError(t, err)
	assert.Equal(t, inventory.Product{ID: "p1", Name: "Widget"}, p)

	_, err = svc.AddProduct(ctx, "p1", "Widget")
	assert.ErrorIs(t, err, inventory.ErrDuplicateKey, "padded and plain ids are the same product")

	_, err = svc.AddLocation(ctx, "wh\t", "Warehouse")
	require.NoError(t, err)
	ok, err := s.LocationExists(ctx, "wh")
	require.NoError(t, err)
	assert.True(t, ok)

	blank := inventory.LocationID("   ")
	padded := inventory.LocationID(" wh ")
	m, err := svc.RecordMovement(ctx, inventory.NewMovement{
		ProductID:    " p1",
		FromLocation: &blank,
		ToLocation:   &padded,
		Quantity:     4,
	})
	require.NoError(t, err)
	assert.Equal(t, inventory.ProductID("p1"), m.ProductID)
	assert.Nil(t, m.FromLocation, "whitespace-only location is no location")
	require.NotNil(t, m.ToLocation)
	assert.Equal(t, inventory.LocationID("wh"), *m.ToLocation)

	qty, err := svc.Balance(ctx, "p1 ", " wh")
	require.NoError(t, err)
	assert.Equal(t, int64(4), qty)
}

func TestParsePolicy(t *testing.T) {
	p, err := inventory.ParsePolicy("", "")
	require.NoError(t, err)
	assert.Equal(t, inventory.DefaultPolicy(), p)

	p, err = inventory.ParsePolicy("enforce", "reject")
	require.NoError(t, err)
	assert.Equal(t, inventory.ReferencesEnforced, p.References)
	assert.Equal(t, inventory.EmptyMovementsRejected, p.EmptyMovements)

	_, err = inventory.ParsePolicy("strict", "")
	assert.ErrorIs(t, err, inventory.ErrInvalidInput)
	_, err = inventory.ParsePolicy("", "maybe")
	assert.ErrorIs(t, err, inventory.ErrInvalidInput)
}
