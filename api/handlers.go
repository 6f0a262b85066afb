/*
handlers.go - JSON API handlers for the stock ledger

ENDPOINTS:
  Products:
    GET    /api/products              List all products
    POST   /api/products              Create product

  Locations:
    GET    /api/locations             List all locations
    POST   /api/locations             Create location

  Movements:
    GET    /api/movements             List all movements
    POST   /api/movements             Record a movement

  Report:
    GET    /api/report                Non-zero balances, products x locations
    GET    /api/balance               ?product=&location= single pair

  Health:
    GET    /healthz                   Store reachability

REQUEST FLOW:
  1. Decode JSON body
  2. Validate DTO (validator tags)
  3. Call inventory.Service
  4. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (missing field, qty not an integer)
  - 404: Balance lookup of an unknown product/location (enforced references)
  - 409: Duplicate product/location id
  - 422: Movement names an unknown product/location (enforced references)
  - 503: Store unavailable
  - 500: Anything else

SEE ALSO:
  - dto.go: Request/response data structures
  - pages.go: HTML form pages sharing the same service
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/warp/stock-ledger/inventory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *inventory.Service
	Log     zerolog.Logger

	validate *validator.Validate
	pages    map[string]*template.Template
}

// NewHandler creates a handler around the service.
func NewHandler(svc *inventory.Service, log zerolog.Logger) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		Service:  svc,
		Log:      log.With().Str("component", "api").Logger(),
		validate: v,
		pages:    parsePages(),
	}
}

// =============================================================================
// PRODUCTS
// =============================================================================

// ListProducts returns all products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Service.Products(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list products", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// CreateProduct creates a new product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}

	p, err := h.Service.AddProduct(r.Context(), req.ProductID, req.ProductName)
	if err != nil {
		h.fail(w, r, "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, ProductDTO{ProductID: string(p.ID), ProductName: p.Name})
}

// =============================================================================
// LOCATIONS
// =============================================================================

// ListLocations returns all locations.
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.Service.Locations(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list locations", err)
		return
	}
	writeJSON(w, http.StatusOK, toLocationDTOs(locations))
}

// CreateLocation creates a new location.
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req CreateLocationRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}

	l, err := h.Service.AddLocation(r.Context(), req.LocationID, req.LocationName)
	if err != nil {
		h.fail(w, r, "Failed to create location", err)
		return
	}
	writeJSON(w, http.StatusCreated, LocationDTO{LocationID: string(l.ID), LocationName: l.Name})
}

// =============================================================================
// MOVEMENTS
// =============================================================================

// ListMovements returns all movements.
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.Service.Movements(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list movements", err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTOs(movements))
}

// CreateMovement records a new movement.
func (h *Handler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	var req CreateMovementRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}

	m, err := h.Service.RecordMovement(r.Context(), req.toNewMovement())
	if err != nil {
		h.fail(w, r, "Failed to record movement", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovementDTO(m))
}

// =============================================================================
// REPORT
// =============================================================================

// GetReport returns every non-zero balance.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Service.Report(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to generate report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTOs(lines))
}

// GetBalance returns the balance of a single product at a single location.
// GET /api/balance?product=p1&location=wh
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	product, location := q.Get("product"), q.Get("location")

	qty, err := h.Service.Balance(r.Context(), product, location)
	if err != nil {
		h.fail(w, r, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{ProductID: product, LocationID: location, Qty: qty})
}

// Health reports whether the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Service.Store.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			h.fail(w, r, "Store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &inventory.InvalidInputError{Field: "body", Reason: err.Error()}
	}
	return h.check(dst)
}

// check runs validator tags and converts the first failure into an
// *inventory.InvalidInputError.
func (h *Handler) check(req any) error {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &inventory.InvalidInputError{Field: fe.Field(), Reason: reason(fe)}
	}
	return &inventory.InvalidInputError{Field: "body", Reason: err.Error()}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(r *http.Request, err error) int {
	switch {
	case errors.Is(err, inventory.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, inventory.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, inventory.ErrNotFound):
		if r.Method == http.MethodGet {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	case errors.Is(err, inventory.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(r, err)
	if status >= http.StatusInternalServerError {
		h.Log.Error().Err(err).Str("path", r.URL.Path).Msg(message)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
