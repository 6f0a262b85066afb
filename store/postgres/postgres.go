// Package postgres provides a PostgreSQL-backed Record Store on pgx.
//
// Same contract and table layout as store/sqlite, with two differences:
// products and locations carry a seq column to keep insertion order, and
// timestamps are TIMESTAMPTZ (microsecond precision).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warp/stock-ledger/inventory"
)

const uniqueViolation = "23505"

// Store implements inventory.AggregateStore on a pgx pool.
type Store struct {
	pool *pgxpool.Pool

	// Now stamps new movements. Defaults to time.Now.
	Now func() time.Time
}

var _ inventory.AggregateStore = (*Store)(nil)

// New connects to dsn and migrates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, &inventory.InvalidInputError{Field: "pg dsn", Reason: err.Error()}
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig is New with a prepared pool config.
func NewWithConfig(ctx context.Context, cfg *pgxpool.Config) (*Store, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, inventory.Unavailable("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, inventory.Unavailable("connect", err)
	}

	s := &Store{pool: pool, Now: time.Now}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, inventory.Unavailable("migrate database", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return inventory.Unavailable("ping", s.pool.Ping(ctx))
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			seq          BIGSERIAL,
			product_id   TEXT PRIMARY KEY,
			product_name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS locations (
			seq           BIGSERIAL,
			location_id   TEXT PRIMARY KEY,
			location_name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS product_movements (
			movement_id   BIGSERIAL PRIMARY KEY,
			timestamp     TIMESTAMPTZ NOT NULL DEFAULT now(),
			from_location TEXT,
			to_location   TEXT,
			product_id    TEXT NOT NULL,
			qty           BIGINT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_movements_product_to
			ON product_movements(product_id, to_location);
		CREATE INDEX IF NOT EXISTS idx_movements_product_from
			ON product_movements(product_id, from_location);
	`)
	return err
}

func (s *Store) AddProduct(ctx context.Context, p inventory.Product) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO products (product_id, product_name) VALUES ($1, $2)",
		string(p.ID), p.Name,
	)
	if isUniqueViolation(err) {
		return &inventory.DuplicateKeyError{Kind: "product", ID: string(p.ID)}
	}
	return inventory.Unavailable("add product", err)
}

func (s *Store) AddLocation(ctx context.Context, l inventory.Location) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO locations (location_id, location_name) VALUES ($1, $2)",
		string(l.ID), l.Name,
	)
	if isUniqueViolation(err) {
		return &inventory.DuplicateKeyError{Kind: "location", ID: string(l.ID)}
	}
	return inventory.Unavailable("add location", err)
}

func (s *Store) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	rows, err := s.pool.Query(ctx, "SELECT product_id, product_name FROM products ORDER BY seq")
	if err != nil {
		return nil, inventory.Unavailable("list products", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventory.Product, error) {
		var id, name string
		err := row.Scan(&id, &name)
		return inventory.Product{ID: inventory.ProductID(id), Name: name}, err
	})
	if err != nil {
		return nil, inventory.Unavailable("list products", err)
	}
	return products, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]inventory.Location, error) {
	rows, err := s.pool.Query(ctx, "SELECT location_id, location_name FROM locations ORDER BY seq")
	if err != nil {
		return nil, inventory.Unavailable("list locations", err)
	}
	locations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventory.Location, error) {
		var id, name string
		err := row.Scan(&id, &name)
		return inventory.Location{ID: inventory.LocationID(id), Name: name}, err
	})
	if err != nil {
		return nil, inventory.Unavailable("list locations", err)
	}
	return locations, nil
}

func (s *Store) ProductExists(ctx context.Context, id inventory.ProductID) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE product_id = $1)", string(id))
}

func (s *Store) LocationExists(ctx context.Context, id inventory.LocationID) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM locations WHERE location_id = $1)", string(id))
}

func (s *Store) exists(ctx context.Context, query, id string) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, inventory.Unavailable("exists", err)
	}
	return ok, nil
}

func (s *Store) AddMovement(ctx context.Context, m inventory.NewMovement) (inventory.Movement, error) {
	var (
		id int64
		ts time.Time
	)
	err := s.pool.QueryRow(ctx, `
		INSERT INTO product_movements (timestamp, from_location, to_location, product_id, qty)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING movement_id, timestamp
	`,
		s.Now().UTC(),
		textRef(m.FromLocation),
		textRef(m.ToLocation),
		string(m.ProductID),
		m.Quantity,
	).Scan(&id, &ts)
	if err != nil {
		return inventory.Movement{}, inventory.Unavailable("add movement", err)
	}

	return inventory.Movement{
		ID:           inventory.MovementID(id),
		Timestamp:    ts.UTC(),
		ProductID:    m.ProductID,
		FromLocation: m.FromLocation,
		ToLocation:   m.ToLocation,
		Quantity:     m.Quantity,
	}, nil
}

func (s *Store) ListMovements(ctx context.Context) ([]inventory.Movement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT movement_id, timestamp, from_location, to_location, product_id, qty
		FROM product_movements
		ORDER BY movement_id
	`)
	if err != nil {
		return nil, inventory.Unavailable("list movements", err)
	}
	movements, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventory.Movement, error) {
		var (
			id        int64
			ts        time.Time
			from, to  *string
			productID string
			qty       int64
		)
		if err := row.Scan(&id, &ts, &from, &to, &productID, &qty); err != nil {
			return inventory.Movement{}, err
		}
		return inventory.Movement{
			ID:           inventory.MovementID(id),
			Timestamp:    ts.UTC(),
			ProductID:    inventory.ProductID(productID),
			FromLocation: locationRef(from),
			ToLocation:   locationRef(to),
			Quantity:     qty,
		}, nil
	})
	if err != nil {
		return nil, inventory.Unavailable("list movements", err)
	}
	return movements, nil
}

func (s *Store) SumQuantity(ctx context.Context, product inventory.ProductID, loc inventory.LocationID, role inventory.Role) (int64, error) {
	var column string
	switch role {
	case inventory.RoleIncoming:
		column = "to_location"
	case inventory.RoleOutgoing:
		column = "from_location"
	default:
		return 0, &inventory.InvalidInputError{Field: "role", Reason: fmt.Sprintf("unknown role %q", role)}
	}

	query := "SELECT COALESCE(SUM(qty), 0)::BIGINT FROM product_movements WHERE product_id = $1 AND " + column + " = $2"
	var sum int64
	if err := s.pool.QueryRow(ctx, query, string(product), string(loc)).Scan(&sum); err != nil {
		return 0, inventory.Unavailable("sum quantity", err)
	}
	return sum, nil
}

func (s *Store) NetBalances(ctx context.Context) ([]inventory.NetBalance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, location_id, SUM(incoming)::BIGINT, SUM(outgoing)::BIGINT
		FROM (
			SELECT product_id, to_location AS location_id, qty AS incoming, 0::BIGINT AS outgoing
			FROM product_movements WHERE to_location IS NOT NULL
			UNION ALL
			SELECT product_id, from_location AS location_id, 0::BIGINT AS incoming, qty AS outgoing
			FROM product_movements WHERE from_location IS NOT NULL
		) AS sides
		GROUP BY product_id, location_id
	`)
	if err != nil {
		return nil, inventory.Unavailable("net balances", err)
	}
	balances, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventory.NetBalance, error) {
		var (
			productID, locationID string
			b                     inventory.NetBalance
		)
		err := row.Scan(&productID, &locationID, &b.Incoming, &b.Outgoing)
		b.ProductID = inventory.ProductID(productID)
		b.LocationID = inventory.LocationID(locationID)
		return b, err
	})
	if err != nil {
		return nil, inventory.Unavailable("net balances", err)
	}
	return balances, nil
}

func textRef(id *inventory.LocationID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}

func locationRef(s *string) *inventory.LocationID {
	if s == nil {
		return nil
	}
	id := inventory.LocationID(*s)
	return &id
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
