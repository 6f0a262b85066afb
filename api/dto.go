/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients (JSON body or HTML form)

FIELD NAMES:
  JSON keys follow the column names of the record store (product_id,
  product_name, from_location, qty, ...), so the API, the forms and the
  tables all speak the same vocabulary.

VALIDATION:
  Request types carry go-playground/validator tags. Ids are limited to
  50 characters, names to 100.
  Handlers call Handler.check before touching the service.
*/
package api

import (
	"time"

	"github.com/warp/stock-ledger/inventory"
)

// =============================================================================
// PRODUCTS / LOCATIONS
// =============================================================================

type ProductDTO struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
}

type CreateProductRequest struct {
	ProductID   string `json:"product_id" validate:"required,max=50"`
	ProductName string `json:"product_name" validate:"required,max=100"`
}

type LocationDTO struct {
	LocationID   string `json:"location_id"`
	LocationName string `json:"location_name"`
}

type CreateLocationRequest struct {
	LocationID   string `json:"location_id" validate:"required,max=50"`
	LocationName string `json:"location_name" validate:"required,max=100"`
}

// =============================================================================
// MOVEMENTS
// =============================================================================

type MovementDTO struct {
	MovementID   int64   `json:"movement_id"`
	Timestamp    string  `json:"timestamp"`
	FromLocation *string `json:"from_location"`
	ToLocation   *string `json:"to_location"`
	ProductID    string  `json:"product_id"`
	Qty          int64   `json:"qty"`
}

// CreateMovementRequest is the request to record a movement. An empty or
// missing from/to location means "outside the system".
type CreateMovementRequest struct {
	ProductID    string `json:"product_id" validate:"required,max=50"`
	FromLocation string `json:"from_location" validate:"max=50"`
	ToLocation   string `json:"to_location" validate:"max=50"`
	Qty          *int64 `json:"qty" validate:"required"`
}

// =============================================================================
// REPORT
// =============================================================================

type ReportLineDTO struct {
	Product    string `json:"product"`
	Location   string `json:"location"`
	Qty        int64  `json:"qty"`
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
}

type BalanceDTO struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Qty        int64  `json:"qty"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toProductDTOs(products []inventory.Product) []ProductDTO {
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = ProductDTO{ProductID: string(p.ID), ProductName: p.Name}
	}
	return dtos
}

func toLocationDTOs(locations []inventory.Location) []LocationDTO {
	dtos := make([]LocationDTO, len(locations))
	for i, l := range locations {
		dtos[i] = LocationDTO{LocationID: string(l.ID), LocationName: l.Name}
	}
	return dtos
}

func toMovementDTO(m inventory.Movement) MovementDTO {
	return MovementDTO{
		MovementID:   int64(m.ID),
		Timestamp:    m.Timestamp.Format(time.RFC3339),
		FromLocation: refString(m.FromLocation),
		ToLocation:   refString(m.ToLocation),
		ProductID:    string(m.ProductID),
		Qty:          m.Quantity,
	}
}

func toMovementDTOs(movements []inventory.Movement) []MovementDTO {
	dtos := make([]MovementDTO, len(movements))
	for i, m := range movements {
		dtos[i] = toMovementDTO(m)
	}
	return dtos
}

func toReportDTOs(lines []inventory.ReportLine) []ReportLineDTO {
	dtos := make([]ReportLineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = ReportLineDTO{
			Product:    l.ProductName,
			Location:   l.LocationName,
			Qty:        l.Quantity,
			ProductID:  string(l.ProductID),
			LocationID: string(l.LocationID),
		}
	}
	return dtos
}

func (r CreateMovementRequest) toNewMovement() inventory.NewMovement {
	var qty int64
	if r.Qty != nil {
		qty = *r.Qty
	}
	return inventory.NewMovement{
		ProductID:    inventory.ProductID(r.ProductID),
		FromLocation: inventory.LocationRef(r.FromLocation),
		ToLocation:   inventory.LocationRef(r.ToLocation),
		Quantity:     qty,
	}
}

func refString(id *inventory.LocationID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}
