/*
engine.go - Ledger Engine: balances derived from movement history

PURPOSE:
  Produces the balance report: one line per (product, location) pair whose
  net balance is non-zero. Nothing is cached. Every call recomputes from
  the full movement history.

ORDERING:
  Products outer, locations inner, each in store-list order. Zero balances
  are omitted; there is no "zero stock" line.

STRATEGIES:
  StrategyExhaustive (default):
    For every product p, for every location l:
      in  = SumQuantity(p, l, incoming)
      out = SumQuantity(p, l, outgoing)
      emit if in - out != 0
    O(products x locations) store round trips. Fine for small data.

  StrategyGrouped:
    One NetBalances call, then the same nested walk over a map lookup.
    Identical output, one aggregate query. Needs an AggregateStore.

ORPHANS:
  Only existing products and locations are walked, so a movement pointing
  at an unknown id never contributes to a row. Double-null movements are
  invisible for the same reason.

FAILURE:
  Any store error aborts the whole report. No partial report is returned.
  A balance that does not fit in int64 fails with ErrQuantityOverflow.

SEE ALSO:
  - store.go: SumQuantity and NetBalances contracts
  - service.go: Exposes Report to the API layer
*/
package inventory

import (
	"context"
	"fmt"
)

// Strategy selects how the engine aggregates.
type Strategy string

const (
	StrategyExhaustive Strategy = "exhaustive"
	StrategyGrouped    Strategy = "grouped"
)

// ParseStrategy maps a config string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyExhaustive, StrategyGrouped:
		return Strategy(s), nil
	case "":
		return StrategyExhaustive, nil
	}
	return "", &InvalidInputError{Field: "report strategy", Reason: fmt.Sprintf("unknown value %q", s)}
}

// Engine computes balances from a Store.
type Engine struct {
	Store    Store
	Strategy Strategy
}

func NewEngine(store Store, strategy Strategy) *Engine {
	return &Engine{Store: store, Strategy: strategy}
}

// Report returns every non-zero (product, location) balance.
// The result is never nil on success.
func (e *Engine) Report(ctx context.Context) ([]ReportLine, error) {
	products, err := e.Store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	locations, err := e.Store.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	var lines []ReportLine
	switch e.Strategy {
	case StrategyGrouped:
		lines, err = e.grouped(ctx, products, locations)
	default:
		lines, err = e.exhaustive(ctx, products, locations)
	}
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	return lines, nil
}

func (e *Engine) exhaustive(ctx context.Context, products []Product, locations []Location) ([]ReportLine, error) {
	lines := []ReportLine{}
	for _, p := range products {
		for _, l := range locations {
			balance, err := e.pairBalance(ctx, p.ID, l.ID)
			if err != nil {
				return nil, err
			}
			if balance != 0 {
				lines = append(lines, line(p, l, balance))
			}
		}
	}
	return lines, nil
}

type pairKey struct {
	product  ProductID
	location LocationID
}

func (e *Engine) grouped(ctx context.Context, products []Product, locations []Location) ([]ReportLine, error) {
	agg, ok := e.Store.(AggregateStore)
	if !ok {
		return nil, ErrStoreRequired
	}
	rows, err := agg.NetBalances(ctx)
	if err != nil {
		return nil, err
	}

	net := make(map[pairKey]int64, len(rows))
	for _, r := range rows {
		k := pairKey{r.ProductID, r.LocationID}
		n, err := r.Net()
		if err == nil {
			n, err = AddQuantity(net[k], n)
		}
		if err != nil {
			return nil, fmt.Errorf("%s@%s: %w", r.ProductID, r.LocationID, err)
		}
		net[k] = n
	}

	lines := []ReportLine{}
	if len(net) == 0 {
		return lines, nil
	}
	for _, p := range products {
		for _, l := range locations {
			if balance := net[pairKey{p.ID, l.ID}]; balance != 0 {
				lines = append(lines, line(p, l, balance))
			}
		}
	}
	return lines, nil
}

// Balance computes the balance of one product at one location.
func (e *Engine) Balance(ctx context.Context, product ProductID, loc LocationID) (int64, error) {
	balance, err := e.pairBalance(ctx, product, loc)
	if err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}
	return balance, nil
}

func (e *Engine) pairBalance(ctx context.Context, product ProductID, loc LocationID) (int64, error) {
	in, err := e.Store.SumQuantity(ctx, product, loc, RoleIncoming)
	if err != nil {
		return 0, err
	}
	out, err := e.Store.SumQuantity(ctx, product, loc, RoleOutgoing)
	if err != nil {
		return 0, err
	}
	balance, err := SubQuantity(in, out)
	if err != nil {
		return 0, fmt.Errorf("%s@%s: %w", product, loc, err)
	}
	return balance, nil
}

func line(p Product, l Location, qty int64) ReportLine {
	return ReportLine{
		ProductID:    p.ID,
		ProductName:  p.Name,
		LocationID:   l.ID,
		LocationName: l.Name,
		Quantity:     qty,
	}
}
