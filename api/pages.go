/*
pages.go - HTML form pages

PURPOSE:
  Server-rendered screens for people without an API client, one per
  record type plus the report. Each "add" form posts to /add_<kind>, the
  handler writes through inventory.Service, and the browser is redirected
  (303) back to the list page.

  On failure the list page is rendered again with the error message and
  the submitted values, using the same status code the JSON API would
  return.

ROUTES:
  GET  /            home
  GET  /products    list + form      POST /add_product
  GET  /locations   list + form      POST /add_location
  GET  /movements   list + form      POST /add_movement
  GET  /report      balance report
*/
package api

import (
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/warp/stock-ledger/inventory"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFiles = []string{"home.html", "products.html", "locations.html", "movements.html", "report.html"}

func parsePages() map[string]*template.Template {
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		pages[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return pages
}

type pageData struct {
	Title     string
	Error     string
	Form      map[string]string
	Products  []ProductDTO
	Locations []LocationDTO
	Movements []MovementDTO
	Report    []ReportLineDTO
}

func (h *Handler) render(w http.ResponseWriter, status int, page string, data pageData) {
	if data.Form == nil {
		data.Form = map[string]string{}
	}
	var buf strings.Builder
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.Log.Error().Err(err).Str("page", page).Msg("render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(buf.String()))
}

// =============================================================================
// PAGES
// =============================================================================

func (h *Handler) HomePage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "home.html", pageData{Title: "Inventory"})
}

func (h *Handler) ProductsPage(w http.ResponseWriter, r *http.Request) {
	h.productsPage(w, r, http.StatusOK, "", nil)
}

func (h *Handler) productsPage(w http.ResponseWriter, r *http.Request, status int, msg string, form map[string]string) {
	products, err := h.Service.Products(r.Context())
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, status, "products.html", pageData{
		Title:    "Products",
		Error:    msg,
		Form:     form,
		Products: toProductDTOs(products),
	})
}

// AddProduct handles the product form.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	req := CreateProductRequest{
		ProductID:   r.PostFormValue("product_id"),
		ProductName: r.PostFormValue("product_name"),
	}
	err := h.check(req)
	if err == nil {
		_, err = h.Service.AddProduct(r.Context(), req.ProductID, req.ProductName)
	}
	if err != nil {
		h.productsPage(w, r, statusFor(r, err), err.Error(), formValues(r, "product_id", "product_name"))
		return
	}
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

func (h *Handler) LocationsPage(w http.ResponseWriter, r *http.Request) {
	h.locationsPage(w, r, http.StatusOK, "", nil)
}

func (h *Handler) locationsPage(w http.ResponseWriter, r *http.Request, status int, msg string, form map[string]string) {
	locations, err := h.Service.Locations(r.Context())
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, status, "locations.html", pageData{
		Title:     "Locations",
		Error:     msg,
		Form:      form,
		Locations: toLocationDTOs(locations),
	})
}

// AddLocation handles the location form.
func (h *Handler) AddLocation(w http.ResponseWriter, r *http.Request) {
	req := CreateLocationRequest{
		LocationID:   r.PostFormValue("location_id"),
		LocationName: r.PostFormValue("location_name"),
	}
	err := h.check(req)
	if err == nil {
		_, err = h.Service.AddLocation(r.Context(), req.LocationID, req.LocationName)
	}
	if err != nil {
		h.locationsPage(w, r, statusFor(r, err), err.Error(), formValues(r, "location_id", "location_name"))
		return
	}
	http.Redirect(w, r, "/locations", http.StatusSeeOther)
}

func (h *Handler) MovementsPage(w http.ResponseWriter, r *http.Request) {
	h.movementsPage(w, r, http.StatusOK, "", nil)
}

func (h *Handler) movementsPage(w http.ResponseWriter, r *http.Request, status int, msg string, form map[string]string) {
	ctx := r.Context()
	movements, err := h.Service.Movements(ctx)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	products, err := h.Service.Products(ctx)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	locations, err := h.Service.Locations(ctx)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, status, "movements.html", pageData{
		Title:     "Movements",
		Error:     msg,
		Form:      form,
		Products:  toProductDTOs(products),
		Locations: toLocationDTOs(locations),
		Movements: toMovementDTOs(movements),
	})
}

// AddMovement handles the movement form. qty must parse as an integer.
func (h *Handler) AddMovement(w http.ResponseWriter, r *http.Request) {
	req, err := h.movementForm(r)
	if err == nil {
		_, err = h.Service.RecordMovement(r.Context(), req.toNewMovement())
	}
	if err != nil {
		form := formValues(r, "product_id", "from_location", "to_location", "qty")
		h.movementsPage(w, r, statusFor(r, err), err.Error(), form)
		return
	}
	http.Redirect(w, r, "/movements", http.StatusSeeOther)
}

func (h *Handler) movementForm(r *http.Request) (CreateMovementRequest, error) {
	req := CreateMovementRequest{
		ProductID:    r.PostFormValue("product_id"),
		FromLocation: r.PostFormValue("from_location"),
		ToLocation:   r.PostFormValue("to_location"),
	}
	if raw := strings.TrimSpace(r.PostFormValue("qty")); raw != "" {
		qty, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, &inventory.InvalidInputError{Field: "qty", Reason: "must be an integer"}
		}
		req.Qty = &qty
	}
	return req, h.check(req)
}

func (h *Handler) ReportPage(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Service.Report(r.Context())
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, http.StatusOK, "report.html", pageData{
		Title:  "Stock Report",
		Report: toReportDTOs(lines),
	})
}

func (h *Handler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(r, err)
	h.Log.Error().Err(err).Str("path", r.URL.Path).Msg("page failed")
	http.Error(w, http.StatusText(status), status)
}

func formValues(r *http.Request, keys ...string) map[string]string {
	form := make(map[string]string, len(keys))
	for _, k := range keys {
		form[k] = r.PostFormValue(k)
	}
	return form
}
