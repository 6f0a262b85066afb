/*
Package inventory provides the stock ledger: products, locations, and the
movements between them, plus the engine that derives balances from them.

PURPOSE:
  Quantities are never stored per location. Every change is a Movement,
  and the balance of a product at a location is always recomputed from
  the full movement history:

    balance(P, L) = sum(qty where to = L, product = P)
                  - sum(qty where from = L, product = P)

KEY CONCEPTS IN THIS FILE (types.go):
  - Product / Location: user-keyed master records, immutable once created
  - Movement: an immutable quantity transfer, optionally from and/or to a location
  - Role: which side of a movement a location sits on (incoming/outgoing)
  - ReportLine: one non-zero (product, location, balance) row

MOVEMENT SHAPES:
  From  To    Meaning
  ----  ----  ------------------------------------------
  nil   L     external inflow  (stock enters at L)
  L     nil   external outflow (sale, disposal at L)
  A     B     transfer         (A loses, B gains)
  nil   nil   legal, but invisible to every report row

SEE ALSO:
  - store.go: Persistence contracts
  - engine.go: Report computation
  - service.go: Write-side validation policy
*/
package inventory

import (
	"strings"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type LocationID string
type MovementID int64

// =============================================================================
// MASTER RECORDS
// =============================================================================

// Product is a stockable item. The ID is supplied by the user.
type Product struct {
	ID   ProductID
	Name string
}

// Location is a place stock can sit in (warehouse, shelf, store front).
type Location struct {
	ID   LocationID
	Name string
}

// =============================================================================
// MOVEMENT - Immutable quantity transfer
// =============================================================================

// NewMovement is what callers hand to the store. The store assigns ID and
// Timestamp.
type NewMovement struct {
	ProductID    ProductID
	FromLocation *LocationID // nil = external inflow
	ToLocation   *LocationID // nil = external outflow
	Quantity     int64
}

// Movement is a persisted movement. Quantity is taken as given: zero and
// negative values are legal and simply flow through the sums.
type Movement struct {
	ID           MovementID
	Timestamp    time.Time // UTC
	ProductID    ProductID
	FromLocation *LocationID
	ToLocation   *LocationID
	Quantity     int64
}

// IsEmpty reports whether the movement has neither source nor destination.
func (m NewMovement) IsEmpty() bool {
	return m.FromLocation == nil && m.ToLocation == nil
}

// IsEmpty reports whether the movement has neither source nor destination.
func (m Movement) IsEmpty() bool {
	return m.FromLocation == nil && m.ToLocation == nil
}

// LocationRef turns a form/JSON value into an optional location reference.
// Surrounding whitespace is dropped; an empty result means "no location".
func LocationRef(s string) *LocationID {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	id := LocationID(s)
	return &id
}

// =============================================================================
// ROLE - Which side of a movement a location sits on
// =============================================================================

type Role string

const (
	RoleIncoming Role = "incoming" // to_location = L
	RoleOutgoing Role = "outgoing" // from_location = L
)

// Matches reports whether the movement touches loc in this role.
func (r Role) Matches(m Movement, loc LocationID) bool {
	switch r {
	case RoleIncoming:
		return m.ToLocation != nil && *m.ToLocation == loc
	case RoleOutgoing:
		return m.FromLocation != nil && *m.FromLocation == loc
	}
	return false
}

// =============================================================================
// REPORT
// =============================================================================

// ReportLine is one row of the balance report. Only non-zero balances
// produce a line.
type ReportLine struct {
	ProductID    ProductID
	ProductName  string
	LocationID   LocationID
	LocationName string
	Quantity     int64
}

// NetBalance is a grouped aggregate for one (product, location) pair.
type NetBalance struct {
	ProductID  ProductID
	LocationID LocationID
	Incoming   int64
	Outgoing   int64
}

// Net returns incoming minus outgoing, or ErrQuantityOverflow.
func (b NetBalance) Net() (int64, error) {
	return SubQuantity(b.Incoming, b.Outgoing)
}

// AddQuantity returns a + b, or ErrQuantityOverflow if it leaves int64.
func AddQuantity(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrQuantityOverflow
	}
	return sum, nil
}

// SubQuantity returns a - b, or ErrQuantityOverflow if it leaves int64.
func SubQuantity(a, b int64) (int64, error) {
	diff := a - b
	if (b > 0 && diff > a) || (b < 0 && diff < a) {
		return 0, ErrQuantityOverflow
	}
	return diff, nil
}
