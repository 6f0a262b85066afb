// Package store provides Store implementations.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/warp/stock-ledger/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	products  []inventory.Product
	locations []inventory.Location
	movements []inventory.Movement

	productIdx  map[inventory.ProductID]bool
	locationIdx map[inventory.LocationID]bool
	nextID      inventory.MovementID

	// Now stamps new movements. Defaults to time.Now.
	Now func() time.Time
}

var _ inventory.AggregateStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		productIdx:  make(map[inventory.ProductID]bool),
		locationIdx: make(map[inventory.LocationID]bool),
		nextID:      1,
		Now:         time.Now,
	}
}

func (m *Memory) AddProduct(_ context.Context, p inventory.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.productIdx[p.ID] {
		return &inventory.DuplicateKeyError{Kind: "product", ID: string(p.ID)}
	}
	m.productIdx[p.ID] = true
	m.products = append(m.products, p)
	return nil
}

func (m *Memory) AddLocation(_ context.Context, l inventory.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locationIdx[l.ID] {
		return &inventory.DuplicateKeyError{Kind: "location", ID: string(l.ID)}
	}
	m.locationIdx[l.ID] = true
	m.locations = append(m.locations, l)
	return nil
}

func (m *Memory) AddMovement(_ context.Context, nm inventory.NewMovement) (inventory.Movement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mv := inventory.Movement{
		ID:           m.nextID,
		Timestamp:    m.Now().UTC(),
		ProductID:    nm.ProductID,
		FromLocation: copyRef(nm.FromLocation),
		ToLocation:   copyRef(nm.ToLocation),
		Quantity:     nm.Quantity,
	}
	m.nextID++
	m.movements = append(m.movements, mv)
	return mv, nil
}

func (m *Memory) ListProducts(_ context.Context) ([]inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]inventory.Product{}, m.products...), nil
}

func (m *Memory) ListLocations(_ context.Context) ([]inventory.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]inventory.Location{}, m.locations...), nil
}

func (m *Memory) ListMovements(_ context.Context) ([]inventory.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]inventory.Movement, len(m.movements))
	for i, mv := range m.movements {
		mv.FromLocation = copyRef(mv.FromLocation)
		mv.ToLocation = copyRef(mv.ToLocation)
		result[i] = mv
	}
	return result, nil
}

func (m *Memory) SumQuantity(_ context.Context, product inventory.ProductID, loc inventory.LocationID, role inventory.Role) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		sum int64
		err error
	)
	for _, mv := range m.movements {
		if mv.ProductID != product || !role.Matches(mv, loc) {
			continue
		}
		if sum, err = inventory.AddQuantity(sum, mv.Quantity); err != nil {
			return 0, inventory.Unavailable("sum quantity", err)
		}
	}
	return sum, nil
}

func (m *Memory) ProductExists(_ context.Context, id inventory.ProductID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.productIdx[id], nil
}

func (m *Memory) LocationExists(_ context.Context, id inventory.LocationID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.locationIdx[id], nil
}

type pair struct {
	product  inventory.ProductID
	location inventory.LocationID
}

// NetBalances aggregates every movement in a single pass.
func (m *Memory) NetBalances(_ context.Context) ([]inventory.NetBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := make(map[pair]int)
	var rows []inventory.NetBalance
	row := func(p inventory.ProductID, l inventory.LocationID) *inventory.NetBalance {
		k := pair{p, l}
		i, ok := idx[k]
		if !ok {
			i = len(rows)
			idx[k] = i
			rows = append(rows, inventory.NetBalance{ProductID: p, LocationID: l})
		}
		return &rows[i]
	}

	var err error
	for _, mv := range m.movements {
		if mv.ToLocation != nil {
			r := row(mv.ProductID, *mv.ToLocation)
			if r.Incoming, err = inventory.AddQuantity(r.Incoming, mv.Quantity); err != nil {
				return nil, inventory.Unavailable("net balances", err)
			}
		}
		if mv.FromLocation != nil {
			r := row(mv.ProductID, *mv.FromLocation)
			if r.Outgoing, err = inventory.AddQuantity(r.Outgoing, mv.Quantity); err != nil {
				return nil, inventory.Unavailable("net balances", err)
			}
		}
	}
	return rows, nil
}

func (m *Memory) Close() error { return nil }

func copyRef(id *inventory.LocationID) *inventory.LocationID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
