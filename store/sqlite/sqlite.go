/*
Package sqlite provides a SQLite-backed implementation of the Record Store.

INTERFACES IMPLEMENTED:
  inventory.Store:          products, locations, movements, SumQuantity
  inventory.AggregateStore: NetBalances (single grouped query)

KEY TABLES:
  products:          product_id (PK), product_name
  locations:         location_id (PK), location_name
  product_movements: movement_id (autoincrement), timestamp, from_location,
                     to_location, product_id, qty

  from_location / to_location / product_id are foreign-key shaped but carry
  NO constraint. Reference checks, when wanted, live in inventory.Service.

INDEXES:
  - idx_movements_product_to:   incoming sums (hot path of the report)
  - idx_movements_product_from: outgoing sums

INSERT-ONLY:
  No UPDATE and no DELETE statements exist in this file.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Each Add* is a single statement and
  therefore atomic. Reports are not isolated from concurrent writers.

USAGE:
  store, err := sqlite.New("./data/inventory.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - inventory/store.go: Interface definitions
  - store/postgres/postgres.go: Same contract on PostgreSQL
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/warp/stock-ledger/inventory"
)

// Store implements inventory.AggregateStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	// Now stamps new movements. Defaults to time.Now.
	Now func() time.Time
}

var _ inventory.AggregateStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, inventory.Unavailable("open database", err)
	}
	if dbPath == ":memory:" {
		// every new connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, Now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, inventory.Unavailable("migrate database", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return inventory.Unavailable("ping", s.db.PingContext(ctx))
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		product_id   TEXT PRIMARY KEY,
		product_name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS locations (
		location_id   TEXT PRIMARY KEY,
		location_name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS product_movements (
		movement_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp     TEXT NOT NULL,
		from_location TEXT,
		to_location   TEXT,
		product_id    TEXT NOT NULL,
		qty           INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movements_product_to
		ON product_movements(product_id, to_location);
	CREATE INDEX IF NOT EXISTS idx_movements_product_from
		ON product_movements(product_id, from_location);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MASTER RECORDS
// =============================================================================

// AddProduct inserts a product.
func (s *Store) AddProduct(ctx context.Context, p inventory.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO products (product_id, product_name) VALUES (?, ?)",
		p.ID, p.Name,
	)
	if isPrimaryKeyError(err) {
		return &inventory.DuplicateKeyError{Kind: "product", ID: string(p.ID)}
	}
	return inventory.Unavailable("add product", err)
}

// AddLocation inserts a location.
func (s *Store) AddLocation(ctx context.Context, l inventory.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO locations (location_id, location_name) VALUES (?, ?)",
		l.ID, l.Name,
	)
	if isPrimaryKeyError(err) {
		return &inventory.DuplicateKeyError{Kind: "location", ID: string(l.ID)}
	}
	return inventory.Unavailable("add location", err)
}

// ListProducts returns all products in insertion order.
func (s *Store) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT product_id, product_name FROM products ORDER BY rowid",
	)
	if err != nil {
		return nil, inventory.Unavailable("list products", err)
	}
	defer rows.Close()

	products := []inventory.Product{}
	for rows.Next() {
		var p inventory.Product
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, inventory.Unavailable("scan product", err)
		}
		products = append(products, p)
	}
	return products, inventory.Unavailable("list products", rows.Err())
}

// ListLocations returns all locations in insertion order.
func (s *Store) ListLocations(ctx context.Context) ([]inventory.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT location_id, location_name FROM locations ORDER BY rowid",
	)
	if err != nil {
		return nil, inventory.Unavailable("list locations", err)
	}
	defer rows.Close()

	locations := []inventory.Location{}
	for rows.Next() {
		var l inventory.Location
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, inventory.Unavailable("scan location", err)
		}
		locations = append(locations, l)
	}
	return locations, inventory.Unavailable("list locations", rows.Err())
}

func (s *Store) ProductExists(ctx context.Context, id inventory.ProductID) (bool, error) {
	return s.exists(ctx, "SELECT COUNT(*) FROM products WHERE product_id = ?", string(id))
}

func (s *Store) LocationExists(ctx context.Context, id inventory.LocationID) (bool, error) {
	return s.exists(ctx, "SELECT COUNT(*) FROM locations WHERE location_id = ?", string(id))
}

func (s *Store) exists(ctx context.Context, query, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return false, inventory.Unavailable("exists", err)
	}
	return count > 0, nil
}

// =============================================================================
// MOVEMENTS
// =============================================================================

// AddMovement inserts a movement and returns it with its assigned id.
func (s *Store) AddMovement(ctx context.Context, m inventory.NewMovement) (inventory.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO product_movements (timestamp, from_location, to_location, product_id, qty)
		VALUES (?, ?, ?, ?, ?)
	`,
		now.Format(time.RFC3339Nano),
		nullLocation(m.FromLocation),
		nullLocation(m.ToLocation),
		m.ProductID,
		m.Quantity,
	)
	if err != nil {
		return inventory.Movement{}, inventory.Unavailable("add movement", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return inventory.Movement{}, inventory.Unavailable("add movement", err)
	}

	return inventory.Movement{
		ID:           inventory.MovementID(id),
		Timestamp:    now,
		ProductID:    m.ProductID,
		FromLocation: m.FromLocation,
		ToLocation:   m.ToLocation,
		Quantity:     m.Quantity,
	}, nil
}

// ListMovements returns all movements in id order.
func (s *Store) ListMovements(ctx context.Context) ([]inventory.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT movement_id, timestamp, from_location, to_location, product_id, qty
		FROM product_movements
		ORDER BY movement_id
	`)
	if err != nil {
		return nil, inventory.Unavailable("list movements", err)
	}
	defer rows.Close()

	movements := []inventory.Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, inventory.Unavailable("list movements", rows.Err())
}

func scanMovement(rows *sql.Rows) (inventory.Movement, error) {
	var (
		m         inventory.Movement
		timestamp string
		from, to  sql.NullString
	)
	if err := rows.Scan(&m.ID, &timestamp, &from, &to, &m.ProductID, &m.Quantity); err != nil {
		return m, inventory.Unavailable("scan movement", err)
	}

	t, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return m, inventory.Unavailable("scan movement", fmt.Errorf("bad timestamp %q: %w", timestamp, err))
	}
	m.Timestamp = t.UTC()
	m.FromLocation = locationRef(from)
	m.ToLocation = locationRef(to)
	return m, nil
}

// =============================================================================
// AGGREGATES
// =============================================================================

// SumQuantity sums qty for one product at one location on one side.
func (s *Store) SumQuantity(ctx context.Context, product inventory.ProductID, loc inventory.LocationID, role inventory.Role) (int64, error) {
	var query string
	switch role {
	case inventory.RoleIncoming:
		query = "SELECT COALESCE(SUM(qty), 0) FROM product_movements WHERE product_id = ? AND to_location = ?"
	case inventory.RoleOutgoing:
		query = "SELECT COALESCE(SUM(qty), 0) FROM product_movements WHERE product_id = ? AND from_location = ?"
	default:
		return 0, &inventory.InvalidInputError{Field: "role", Reason: fmt.Sprintf("unknown role %q", role)}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	if err := s.db.QueryRowContext(ctx, query, product, loc).Scan(&sum); err != nil {
		return 0, inventory.Unavailable("sum quantity", err)
	}
	return sum, nil
}

// NetBalances groups all movements by (product, location, direction)
// in one query.
func (s *Store) NetBalances(ctx context.Context) ([]inventory.NetBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, netBalancesQuery)
	if err != nil {
		return nil, inventory.Unavailable("net balances", err)
	}
	defer rows.Close()

	var result []inventory.NetBalance
	for rows.Next() {
		var b inventory.NetBalance
		if err := rows.Scan(&b.ProductID, &b.LocationID, &b.Incoming, &b.Outgoing); err != nil {
			return nil, inventory.Unavailable("scan net balance", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, inventory.Unavailable("net balances", err)
	}
	return result, nil
}

const netBalancesQuery = `
	SELECT product_id, location_id, SUM(incoming), SUM(outgoing)
	FROM (
		SELECT product_id, to_location AS location_id, qty AS incoming, 0 AS outgoing
		FROM product_movements WHERE to_location IS NOT NULL
		UNION ALL
		SELECT product_id, from_location AS location_id, 0 AS incoming, qty AS outgoing
		FROM product_movements WHERE from_location IS NOT NULL
	) AS sides
	GROUP BY product_id, location_id
`

// Helper functions

func nullLocation(id *inventory.LocationID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*id), Valid: true}
}

func locationRef(ns sql.NullString) *inventory.LocationID {
	if !ns.Valid {
		return nil
	}
	id := inventory.LocationID(ns.String)
	return &id
}

func isPrimaryKeyError(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		se.ExtendedCode == sqlite3.ErrConstraintUnique
}
