/*
service.go - Write-side validation and the four operation groups

PURPOSE:
  Service is what the presentation layer talks to. It owns the choices
  the storage layer deliberately leaves open:

  References (Policy.References):
    permissive - movements may name unknown products/locations; they are
                 stored and silently ignored by reports (default)
    enforce    - unknown ids are rejected with *NotFoundError

  Empty movements (Policy.EmptyMovements), i.e. from = nil and to = nil:
    allow      - stored, no effect on any balance (default)
    reject     - rejected with *InvalidInputError

  Writes go straight to the Store. Reads of the report go through Engine.

OPERATION GROUPS:
  list/create product, list/create location, list/create movement, report
*/
package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// =============================================================================
// POLICY
// =============================================================================

type ReferenceMode string

const (
	ReferencesPermissive ReferenceMode = "permissive"
	ReferencesEnforced   ReferenceMode = "enforce"
)

type EmptyMovementMode string

const (
	EmptyMovementsAllowed  EmptyMovementMode = "allow"
	EmptyMovementsRejected EmptyMovementMode = "reject"
)

// Policy collects the write-side validation choices.
type Policy struct {
	References     ReferenceMode
	EmptyMovements EmptyMovementMode
}

// DefaultPolicy matches the observed behavior of the system: permissive on
// both counts.
func DefaultPolicy() Policy {
	return Policy{
		References:     ReferencesPermissive,
		EmptyMovements: EmptyMovementsAllowed,
	}
}

// ParsePolicy builds a Policy from config strings. Empty strings take the
// defaults.
func ParsePolicy(references, emptyMovements string) (Policy, error) {
	p := DefaultPolicy()
	switch ReferenceMode(references) {
	case "":
	case ReferencesPermissive, ReferencesEnforced:
		p.References = ReferenceMode(references)
	default:
		return p, &InvalidInputError{Field: "references", Reason: fmt.Sprintf("unknown value %q", references)}
	}
	switch EmptyMovementMode(emptyMovements) {
	case "":
	case EmptyMovementsAllowed, EmptyMovementsRejected:
		p.EmptyMovements = EmptyMovementMode(emptyMovements)
	default:
		return p, &InvalidInputError{Field: "empty movements", Reason: fmt.Sprintf("unknown value %q", emptyMovements)}
	}
	return p, nil
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store  Store
	Engine *Engine
	Policy Policy
	Log    zerolog.Logger
}

func NewService(store Store, strategy Strategy, policy Policy, log zerolog.Logger) *Service {
	return &Service{
		Store:  store,
		Engine: NewEngine(store, strategy),
		Policy: policy,
		Log:    log.With().Str("component", "inventory").Logger(),
	}
}

// AddProduct creates a product. Both id and name are required and are
// stored without surrounding whitespace.
func (s *Service) AddProduct(ctx context.Context, id, name string) (Product, error) {
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if err := required("product_id", id); err != nil {
		return Product{}, s.reject("add_product", err)
	}
	if err := required("product_name", name); err != nil {
		return Product{}, s.reject("add_product", err)
	}

	p := Product{ID: ProductID(id), Name: name}
	if err := s.Store.AddProduct(ctx, p); err != nil {
		return Product{}, s.reject("add_product", err)
	}
	s.Log.Debug().Str("product_id", id).Msg("product added")
	return p, nil
}

// AddLocation creates a location. Both id and name are required.
func (s *Service) AddLocation(ctx context.Context, id, name string) (Location, error) {
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if err := required("location_id", id); err != nil {
		return Location{}, s.reject("add_location", err)
	}
	if err := required("location_name", name); err != nil {
		return Location{}, s.reject("add_location", err)
	}

	l := Location{ID: LocationID(id), Name: name}
	if err := s.Store.AddLocation(ctx, l); err != nil {
		return Location{}, s.reject("add_location", err)
	}
	s.Log.Debug().Str("location_id", id).Msg("location added")
	return l, nil
}

// RecordMovement validates m against the Policy and persists it.
func (s *Service) RecordMovement(ctx context.Context, m NewMovement) (Movement, error) {
	m = m.normalized()
	if err := s.validateMovement(ctx, m); err != nil {
		return Movement{}, s.reject("add_movement", err)
	}

	stored, err := s.Store.AddMovement(ctx, m)
	if err != nil {
		return Movement{}, s.reject("add_movement", err)
	}
	s.Log.Debug().
		Int64("movement_id", int64(stored.ID)).
		Str("product_id", string(stored.ProductID)).
		Int64("qty", stored.Quantity).
		Msg("movement recorded")
	return stored, nil
}

// normalized trims the ids of m. A location that is only whitespace
// becomes no location.
func (m NewMovement) normalized() NewMovement {
	m.ProductID = ProductID(strings.TrimSpace(string(m.ProductID)))
	if m.FromLocation != nil {
		m.FromLocation = LocationRef(string(*m.FromLocation))
	}
	if m.ToLocation != nil {
		m.ToLocation = LocationRef(string(*m.ToLocation))
	}
	return m
}

func (s *Service) validateMovement(ctx context.Context, m NewMovement) error {
	if err := required("product_id", string(m.ProductID)); err != nil {
		return err
	}
	if m.IsEmpty() && s.Policy.EmptyMovements == EmptyMovementsRejected {
		return &InvalidInputError{Field: "location", Reason: "from_location or to_location is required"}
	}
	if s.Policy.References != ReferencesEnforced {
		return nil
	}

	if err := s.productExists(ctx, m.ProductID); err != nil {
		return err
	}
	for _, loc := range []*LocationID{m.FromLocation, m.ToLocation} {
		if loc == nil {
			continue
		}
		if err := s.locationExists(ctx, *loc); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) productExists(ctx context.Context, id ProductID) error {
	ok, err := s.Store.ProductExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Kind: "product", ID: string(id)}
	}
	return nil
}

func (s *Service) locationExists(ctx context.Context, id LocationID) error {
	ok, err := s.Store.LocationExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Kind: "location", ID: string(id)}
	}
	return nil
}

func (s *Service) Products(ctx context.Context) ([]Product, error) {
	return s.Store.ListProducts(ctx)
}

func (s *Service) Locations(ctx context.Context) ([]Location, error) {
	return s.Store.ListLocations(ctx)
}

func (s *Service) Movements(ctx context.Context) ([]Movement, error) {
	return s.Store.ListMovements(ctx)
}

// Report delegates to the Engine.
func (s *Service) Report(ctx context.Context) ([]ReportLine, error) {
	lines, err := s.Engine.Report(ctx)
	if err != nil {
		s.Log.Error().Err(err).Msg("report failed")
		return nil, err
	}
	return lines, nil
}

// Balance returns the balance of one pair. Both ids are required. With
// enforced references, unknown ids fail with *NotFoundError.
func (s *Service) Balance(ctx context.Context, product, loc string) (int64, error) {
	product, loc = strings.TrimSpace(product), strings.TrimSpace(loc)
	if err := required("product", product); err != nil {
		return 0, err
	}
	if err := required("location", loc); err != nil {
		return 0, err
	}
	if s.Policy.References == ReferencesEnforced {
		if err := s.productExists(ctx, ProductID(product)); err != nil {
			return 0, err
		}
		if err := s.locationExists(ctx, LocationID(loc)); err != nil {
			return 0, err
		}
	}
	return s.Engine.Balance(ctx, ProductID(product), LocationID(loc))
}

func (s *Service) reject(op string, err error) error {
	ev := s.Log.Warn()
	if !IsClientError(err) {
		ev = s.Log.Error()
	}
	ev.Err(err).Str("op", op).Msg("operation rejected")
	return err
}

func required(field, value string) error {
	if value == "" {
		return &InvalidInputError{Field: field, Reason: "required"}
	}
	return nil
}
