package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/inventory"
	"github.com/warp/stock-ledger/inventory/store"
)

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPages_Render(t *testing.T) {
	h := newTestRouter(t, store.NewMemory(), inventory.DefaultPolicy())

	for path, heading := range map[string]string{
		"/":          "<h1>Inventory</h1>",
		"/products":  "<h1>Products</h1>",
		"/locations": "<h1>Locations</h1>",
		"/movements": "<h1>Movements</h1>",
		"/report":    "<h1>Stock Report</h1>",
	} {
		t.Run(path, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), heading)
		})
	}
}

func TestAddProductForm(t *testing.T) {
	h := newTestRouter(t, store.NewMemory(), inventory.DefaultPolicy())

	rec := postForm(t, h, "/add_product", url.Values{"product_id": {"p1"}, "product_name": {"Widget"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/products", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/products", "")
	assert.Contains(t, rec.Body.String(), "<td>Widget</td>")

	// Duplicate re-renders the list with the error and the submitted values.
	rec = postForm(t, h, "/add_product", url.Values{"product_id": {"p1"}, "product_name": {"Other"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
	assert.Contains(t, rec.Body.String(), `value="Other"`)
}

func TestAddProductForm_Missing(t *testing.T) {
	h := newTestRouter(t, store.NewMemory(), inventory.DefaultPolicy())

	rec := postForm(t, h, "/add_product", url.Values{"product_name": {"Widget"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid product_id: required")
	assert.Contains(t, rec.Body.String(), "No products yet.")
}

func TestAddLocationForm(t *testing.T) {
	h := newTestRouter(t, store.NewMemory(), inventory.DefaultPolicy())

	rec := postForm(t, h, "/add_location", url.Values{"location_id": {"wh"}, "location_name": {"Warehouse"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/locations", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/locations", "")
	assert.Contains(t, rec.Body.String(), "<td>Warehouse</td>")
}

func TestAddMovementForm(t *testing.T) {
	h := newTestRouter(t, store.NewMemory(), inventory.DefaultPolicy())
	seedAPI(t, h)

	rec := postForm(t, h, "/add_movement", url.Values{
		"product_id":    {"p1"},
		"from_location": {""},
		"to_location":   {"wh"},
		"qty":           {"12"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/movements", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/movements", "")
	body := rec.Body.String()
	assert.Contains(t, body, "<td>p1</td>")
	assert.Contains(t, body, "<td>-</td>")
	assert.Contains(t, body, "<td>wh</td>")
	assert.Contains(t, body, "<td>12</td>")

	rec = do(t, h, http.MethodGet, "/report", "")
	body = rec.Body.String()
	assert.Contains(t, body, "<td>Widget</td><td>Warehouse</td><td>12</td>")
	assert.NotContains(t, body, "No stock on hand.")
}

func TestAddMovementForm_BadQuantity(t *testing.T) {
	h := newTestRouter(t, store.NewMemory(), inventory.DefaultPolicy())
	seedAPI(t, h)

	for _, qty := range []string{"abc", "1.5", ""} {
		t.Run(qty, func(t *testing.T) {
			rec := postForm(t, h, "/add_movement", url.Values{
				"product_id":  {"p1"},
				"to_location": {"wh"},
				"qty":         {qty},
			})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid qty")
		})
	}

	rec := do(t, h, http.MethodGet, "/movements", "")
	assert.Contains(t, rec.Body.String(), "No movements yet.")
}

func TestAddMovementForm_KeepsSelections(t *testing.T) {
	h := newTestRouter(t, store.NewMemory(), inventory.DefaultPolicy())
	seedAPI(t, h)

	rec := postForm(t, h, "/add_movement", url.Values{
		"product_id":    {"p2"},
		"from_location": {"wh"},
		"to_location":   {"shop"},
		"qty":           {"lots"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `<option value="p2" selected>Gadget</option>`)
	assert.Contains(t, body, `<option value="p1">Widget</option>`)
	assert.Contains(t, body, `<option value="wh" selected>Warehouse</option>`)
	assert.Contains(t, body, `<option value="shop" selected>Shop</option>`)
	assert.Contains(t, body, `value="lots"`)
}

func TestReportPage_Empty(t *testing.T) {
	h := newTestRouter(t, store.NewMemory(), inventory.DefaultPolicy())
	rec := do(t, h, http.MethodGet, "/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No stock on hand.")
}
