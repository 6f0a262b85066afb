/*
store.go - Persistence contracts for the Record Store

PURPOSE:
  Defines the interface between the ledger and the database. Three
  collections: products, locations, movements. All are insert-only.

KEY INTERFACES:
  Store:          insert-one, list-all, and the per-pair SumQuantity aggregate
  AggregateStore: adds NetBalances, a single grouped aggregation

INSERT-ONLY CONTRACT:
  There is no Update or Delete for any record. Each Add* call is a single
  atomic write. Nothing spans calls: a report running concurrently with a
  write may or may not see it.

REFERENCES:
  Stores do NOT check that a movement's product/location ids exist. That
  choice belongs to Service (see Policy in service.go).

IMPLEMENTATIONS:
  - inventory/store/memory.go: In-memory, for tests and the "memory" driver
  - store/sqlite/sqlite.go:    SQLite (default)
  - store/postgres/postgres.go: PostgreSQL via pgx
*/
package inventory

import "context"

// Store handles persistence of products, locations and movements.
type Store interface {
	// AddProduct persists p. Returns *DuplicateKeyError if the id exists.
	AddProduct(ctx context.Context, p Product) error

	// AddLocation persists l. Returns *DuplicateKeyError if the id exists.
	AddLocation(ctx context.Context, l Location) error

	// AddMovement assigns a fresh id and a UTC timestamp, persists, and
	// returns the stored record. No range or reference checks.
	AddMovement(ctx context.Context, m NewMovement) (Movement, error)

	// List* return every record in insertion order.
	ListProducts(ctx context.Context) ([]Product, error)
	ListLocations(ctx context.Context) ([]Location, error)
	ListMovements(ctx context.Context) ([]Movement, error)

	// SumQuantity returns the sum of qty over movements for product whose
	// to_location (incoming) or from_location (outgoing) is loc.
	// Returns 0 when nothing matches.
	SumQuantity(ctx context.Context, product ProductID, loc LocationID, role Role) (int64, error)

	// ProductExists and LocationExists back reference enforcement.
	ProductExists(ctx context.Context, id ProductID) (bool, error)
	LocationExists(ctx context.Context, id LocationID) (bool, error)

	Close() error
}

// AggregateStore extends Store with a grouped aggregation.
// Required for StrategyGrouped.
type AggregateStore interface {
	Store

	// NetBalances groups movements by (product, location, direction) and
	// returns incoming/outgoing totals per pair, in one pass.
	// Pairs with no movements are absent.
	NetBalances(ctx context.Context) ([]NetBalance, error)
}
