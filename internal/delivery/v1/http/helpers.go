package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/DRSN-tech/inventory-tracker/internal/usecase"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// ToHTTPResponse сопоставляет ошибку статусу и сообщению для клиента.
// Для ошибок разбора CSV сообщение содержит строку и поле.
func ToHTTPResponse(err error) (int, string) {
	var parseErr *e.ParseError

	switch {
	case errors.As(err, &parseErr):
		return http.StatusBadRequest, parseErr.Error()
	case errors.Is(err, e.ErrInvalidFilter):
		return http.StatusBadRequest, e.ErrInvalidFilter.Error()
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	case errors.Is(err, e.ErrExpectedMultipart):
		return http.StatusBadRequest, e.ErrExpectedMultipart.Error()
	case errors.Is(err, e.ErrMissingFields):
		return http.StatusBadRequest, e.ErrMissingFields.Error()
	case errors.Is(err, e.ErrProductNotFound):
		return http.StatusNotFound, e.ErrProductNotFound.Error()
	case errors.Is(err, e.ErrSchema):
		return http.StatusConflict, e.ErrSchema.Error()
	case errors.Is(err, e.ErrStorageBusy):
		return http.StatusServiceUnavailable, e.ErrStorageBusy.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	if code == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	WriteSuccess(w, code, NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseFindQuery читает фильтры поиска из query-параметров.
func parseFindQuery(r *http.Request) (*usecase.FindProductsReq, error) {
	q := r.URL.Query()

	minPrice, err := parsePrice(q.Get("min_price"))
	if err != nil {
		return nil, e.Wrap("min_price", err)
	}

	maxPrice, err := parsePrice(q.Get("max_price"))
	if err != nil {
		return nil, e.Wrap("max_price", err)
	}

	return usecase.NewFindProductsReq(q.Get("name"), q.Get("category"), minPrice, maxPrice), nil
}

// parsePrice разбирает необязательную неотрицательную цену; пустая строка — nil.
func parsePrice(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, e.ErrInvalidFilter
	}
	if d.IsNegative() {
		return nil, e.ErrInvalidFilter
	}

	return &d, nil
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return e.Wrap(whereami.WhereAmI(), e.Mark(e.ErrStatusBadRequest, err))
	}

	return nil
}

// saveUpload копирует загруженный файл во временный файл и возвращает его путь.
// Удаление файла остаётся за вызывающим.
func saveUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "inventory-import-*.csv")
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", e.Wrap(whereami.WhereAmI(), err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return dst.Name(), nil
}
