package http

import (
	"bytes"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/DRSN-tech/inventory-tracker/internal/domain"
	"github.com/DRSN-tech/inventory-tracker/internal/usecase"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/DRSN-tech/inventory-tracker/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type ProductResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
}

type EventResponse struct {
	ID             int64     `json:"id"`
	ProductID      int64     `json:"product_id"`
	Type           string    `json:"event_type"`
	QuantityChange int64     `json:"quantity_change"`
	Price          string    `json:"price"`
	Timestamp      time.Time `json:"timestamp"`
	BatchID        string    `json:"batch_id,omitempty"`
}

type ImportResponse struct {
	Imported int    `json:"imported"`
	BatchID  string `json:"batch_id"`
}

type DriftResponse struct {
	Product          ProductResponse `json:"product"`
	ExpectedQuantity int64           `json:"expected_quantity"`
	ExpectedPrice    string          `json:"expected_price"`
}

type InventoryHandler struct {
	inventoryUsecase usecase.InventoryUC
	logger           logger.Logger
}

func NewInventoryHandler(inventoryUsecase usecase.InventoryUC, logger logger.Logger) *InventoryHandler {
	return &InventoryHandler{inventoryUsecase: inventoryUsecase, logger: logger}
}

// findProducts — GET /products?name=&category=&min_price=&max_price=
//
// @Summary      Поиск продуктов
// @Tags         products
// @Produce      json
// @Param        name       query  string  false  "подстрока названия"
// @Param        category   query  string  false  "категория"
// @Param        min_price  query  string  false  "минимальная цена"
// @Param        max_price  query  string  false  "максимальная цена"
// @Success      200  {array}   ProductResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /products [get]
func (h *InventoryHandler) findProducts(w http.ResponseWriter, r *http.Request) {
	req, err := parseFindQuery(r)
	if err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	products, err := h.inventoryUsecase.Find(r.Context(), req)
	if err != nil {
		h.writeUsecaseError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toProductResponses(products))
}

// productEvents — GET /products/{id}/events
//
// @Summary      История движений продукта
// @Tags         products
// @Produce      json
// @Param        id   path      int  true  "id продукта"
// @Success      200  {array}   EventResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /products/{id}/events [get]
func (h *InventoryHandler) productEvents(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, e.ErrStatusBadRequest)
		return
	}

	events, err := h.inventoryUsecase.History(r.Context(), id)
	if err != nil {
		h.writeUsecaseError(w, err)
		return
	}

	res := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		res = append(res, EventResponse{
			ID:             ev.ID,
			ProductID:      ev.ProductID,
			Type:           string(ev.Type),
			QuantityChange: ev.QuantityChange,
			Price:          ev.Price.StringFixed(2),
			Timestamp:      ev.Timestamp,
			BatchID:        ev.BatchID,
		})
	}

	WriteSuccess(w, http.StatusOK, res)
}

// importProducts — POST /imports, multipart-поле file с CSV.
//
// @Summary      Импорт CSV
// @Tags         inventory
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "CSV: Product Name,Category,Price,Quantity"
// @Success      201   {object}  ImportResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      503   {object}  ErrorResponse
// @Router       /imports [post]
func (h *InventoryHandler) importProducts(w http.ResponseWriter, r *http.Request) {
	const (
		maxTotalRequestSize = 64 << 20
		maxMemory           = 8 << 20
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), r.Header.Get("Content-Type"))
		WriteError(w, err)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) != 1 {
		WriteError(w, e.Wrap("file", e.ErrMissingFields))
		return
	}

	path, err := saveUpload(files[0])
	if err != nil {
		h.logger.Errorf(err, "failed to store uploaded file %s", files[0].Filename)
		WriteError(w, err)
		return
	}
	defer os.Remove(path)

	res, err := h.inventoryUsecase.Import(r.Context(), path)
	if err != nil {
		if res != nil {
			h.logger.Warnf("import of %s stopped after %d rows (batch %s)", files[0].Filename, res.Imported, res.BatchID)
		}
		h.writeUsecaseError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, ImportResponse{Imported: res.Imported, BatchID: res.BatchID})
}

// report — GET /report, текстовый отчёт.
//
// @Summary      Отчёт об инвентаре
// @Tags         inventory
// @Produce      plain
// @Success      200  {string}  string
// @Router       /report [get]
func (h *InventoryHandler) report(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.inventoryUsecase.WriteReport(r.Context(), &buf); err != nil {
		h.writeUsecaseError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// verify — GET /verify, продукты со снимком, расходящимся с журналом.
//
// @Summary      Сверка снимков с журналом
// @Tags         inventory
// @Produce      json
// @Success      200  {array}  DriftResponse
// @Router       /verify [get]
func (h *InventoryHandler) verify(w http.ResponseWriter, r *http.Request) {
	drifts, err := h.inventoryUsecase.Verify(r.Context())
	if err != nil {
		h.writeUsecaseError(w, err)
		return
	}

	res := make([]DriftResponse, 0, len(drifts))
	for _, d := range drifts {
		res = append(res, DriftResponse{
			Product:          toProductResponse(d.Product),
			ExpectedQuantity: d.Expected.Quantity,
			ExpectedPrice:    d.Expected.Price.StringFixed(2),
		})
	}

	WriteSuccess(w, http.StatusOK, res)
}

func (h *InventoryHandler) writeUsecaseError(w http.ResponseWriter, err error) {
	if code, _ := ToHTTPResponse(err); code >= http.StatusInternalServerError {
		h.logger.Errorf(err, "request failed")
	} else {
		h.logger.Warnf("%s", err.Error())
	}
	WriteError(w, err)
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price.StringFixed(2),
		Quantity: p.Quantity,
	}
}

func toProductResponses(products []domain.Product) []ProductResponse {
	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}

	return res
}
