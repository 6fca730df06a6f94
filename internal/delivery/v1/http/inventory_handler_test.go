package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DRSN-tech/inventory-tracker/internal/domain"
	"github.com/DRSN-tech/inventory-tracker/internal/usecase"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/DRSN-tech/inventory-tracker/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInventoryUC struct {
	products     []domain.Product
	events       []domain.InventoryEvent
	drifts       []domain.Drift
	err          error
	importRes    *usecase.ImportRes
	lastFind     *usecase.FindProductsReq
	importedBody string
}

func (f *fakeInventoryUC) Import(_ context.Context, path string) (*usecase.ImportRes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.importedBody = string(data)
	return f.importRes, f.err
}

func (f *fakeInventoryUC) Find(_ context.Context, req *usecase.FindProductsReq) ([]domain.Product, error) {
	f.lastFind = req
	return f.products, f.err
}

func (f *fakeInventoryUC) Report(context.Context, string) error { return f.err }

func (f *fakeInventoryUC) WriteReport(_ context.Context, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, "=== Rapport d'inventaire ===\n")
	return err
}

func (f *fakeInventoryUC) BuildReport(context.Context) (*domain.InventoryReport, error) {
	return domain.NewInventoryReport(nil), f.err
}

func (f *fakeInventoryUC) History(context.Context, int64) ([]domain.InventoryEvent, error) {
	return f.events, f.err
}

func (f *fakeInventoryUC) Verify(context.Context) ([]domain.Drift, error) {
	return f.drifts, f.err
}

func newTestServer(uc usecase.InventoryUC) http.Handler {
	r := chi.NewRouter()
	NewRouter(r, logger.NewNopLogger()).Init(uc)
	return r
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFindProducts(t *testing.T) {
	uc := &fakeInventoryUC{products: []domain.Product{
		{ID: 1, Name: "Ordinateur Test", Category: "Électronique", Price: decimal.RequireFromString("999.99"), Quantity: 5},
	}}
	h := newTestServer(uc)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/products?name=ordi&min_price=10&max_price=1000", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var res []ProductResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res, 1)
	assert.Equal(t, "999.99", res[0].Price)

	require.NotNil(t, uc.lastFind.Name)
	assert.Equal(t, "ordi", *uc.lastFind.Name)
	assert.Nil(t, uc.lastFind.Category)
	assert.True(t, decimal.NewFromInt(10).Equal(*uc.lastFind.MinPrice))
}

func TestFindProductsEmptyIsArray(t *testing.T) {
	h := newTestServer(&fakeInventoryUC{products: []domain.Product{}})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestFindProductsInvalidPrice(t *testing.T) {
	h := newTestServer(&fakeInventoryUC{})

	for _, query := range []string{"min_price=abc", "max_price=-5"} {
		rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/products?"+query, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestProductEvents(t *testing.T) {
	uc := &fakeInventoryUC{events: []domain.InventoryEvent{
		{ID: 1, ProductID: 7, Type: domain.EventAdd, QuantityChange: 5, Price: decimal.RequireFromString("12.5"), Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}}
	h := newTestServer(uc)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/products/7/events", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var res []EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res, 1)
	assert.Equal(t, "add", res[0].Type)
	assert.Equal(t, "12.50", res[0].Price)
}

func TestProductEventsErrors(t *testing.T) {
	h := newTestServer(&fakeInventoryUC{err: e.Wrap("History", e.ErrProductNotFound)})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/products/99/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/products/abc/events", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartRequest(t *testing.T, field, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "products.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportProducts(t *testing.T) {
	const csv = "Product Name,Category,Price,Quantity\nStylo,Bureau,1.50,10\n"
	uc := &fakeInventoryUC{importRes: &usecase.ImportRes{BatchID: "batch-1", Imported: 1}}
	h := newTestServer(uc)

	rec := do(t, h, multipartRequest(t, "file", csv))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"imported":1,"batch_id":"batch-1"}`, rec.Body.String())
	assert.Equal(t, csv, uc.importedBody)
}

func TestImportProductsErrors(t *testing.T) {
	t.Run("not multipart", func(t *testing.T) {
		h := newTestServer(&fakeInventoryUC{})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", bytes.NewBufferString("x"))
		req.Header.Set("Content-Type", "text/csv")

		assert.Equal(t, http.StatusBadRequest, do(t, h, req).Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		h := newTestServer(&fakeInventoryUC{})

		assert.Equal(t, http.StatusBadRequest, do(t, h, multipartRequest(t, "upload", "x")).Code)
	})

	t.Run("parse error", func(t *testing.T) {
		perr := e.NewParseError(2, "Price", "abc", errors.New("bad number"))
		h := newTestServer(&fakeInventoryUC{importRes: &usecase.ImportRes{Imported: 1}, err: e.Wrap("Import", perr)})

		rec := do(t, h, multipartRequest(t, "file", "whatever"))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var res ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Contains(t, res.Message, "row 2")
	})

	t.Run("storage busy", func(t *testing.T) {
		h := newTestServer(&fakeInventoryUC{err: fmt.Errorf("%w: lock", e.ErrStorageBusy)})

		rec := do(t, h, multipartRequest(t, "file", "whatever"))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	})
}

func TestReport(t *testing.T) {
	h := newTestServer(&fakeInventoryUC{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "=== Rapport d'inventaire ===\n", rec.Body.String())
}

func TestReportInternalError(t *testing.T) {
	h := newTestServer(&fakeInventoryUC{err: errors.New("disk on fire")})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/report", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestVerify(t *testing.T) {
	uc := &fakeInventoryUC{drifts: []domain.Drift{{
		Product:  domain.Product{ID: 3, Name: "Vis", Price: decimal.RequireFromString("0.10"), Quantity: 90},
		Expected: domain.StockState{Quantity: 100, Price: decimal.RequireFromString("0.10")},
	}}}
	h := newTestServer(uc)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/verify", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var res []DriftResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res, 1)
	assert.Equal(t, int64(90), res[0].Product.Quantity)
	assert.Equal(t, int64(100), res[0].ExpectedQuantity)
}

func TestToHTTPResponse(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{err: e.ErrInvalidFilter, code: http.StatusBadRequest},
		{err: e.NewParseError(0, "Price", "", e.ErrMissingColumn), code: http.StatusBadRequest},
		{err: e.ErrProductNotFound, code: http.StatusNotFound},
		{err: e.ErrSchema, code: http.StatusConflict},
		{err: e.ErrStorageBusy, code: http.StatusServiceUnavailable},
		{err: errors.New("boom"), code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		code, _ := ToHTTPResponse(e.Wrap("op", tt.err))
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func TestSwaggerDoc(t *testing.T) {
	h := newTestServer(&fakeInventoryUC{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/products/{id}/events")
	assert.Contains(t, rec.Body.String(), "http.ImportResponse")
}
