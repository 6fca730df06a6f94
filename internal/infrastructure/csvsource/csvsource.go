// Package csvsource читает файлы импорта продуктов в формате CSV.
package csvsource

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/DRSN-tech/inventory-tracker/internal/usecase"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/shopspring/decimal"
)

// Обязательные колонки заголовка. Регистр учитывается, порядок произвольный.
const (
	ColumnName     = "Product Name"
	ColumnCategory = "Category"
	ColumnPrice    = "Price"
	ColumnQuantity = "Quantity"
)

var requiredColumns = []string{ColumnName, ColumnCategory, ColumnPrice, ColumnQuantity}

const bom = "\uFEFF"

// Source открывает CSV-файлы с продуктами.
type Source struct{}

func NewSource() *Source {
	return &Source{}
}

// Open открывает файл и читает заголовок. Отсутствующий файл — e.ErrFileNotFound,
// каталог или сбой чтения — e.ErrIO, отсутствующая колонка — ParseError на строке 0.
func (s *Source) Open(path string) (usecase.ProductRows, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", e.ErrFileNotFound, path)
		}
		return nil, e.Mark(e.ErrIO, err)
	}

	info, err := f.Stat()
	if err == nil && info.IsDir() {
		err = fmt.Errorf("%s is a directory", path)
	}
	if err != nil {
		_ = f.Close()
		return nil, e.Mark(e.ErrIO, err)
	}

	rows, err := NewRows(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	rows.closer = f

	return rows, nil
}

// Rows отдаёт разобранные строки данных по одной.
type Rows struct {
	reader  *csv.Reader
	columns map[string]int
	row     int
	closer  io.Closer
}

// NewRows читает заголовок из r. Закрытие r остаётся за вызывающим.
func NewRows(r io.Reader) (*Rows, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(bom)); err == nil && string(b) == bom {
		_, _ = br.Discard(len(bom))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, e.NewParseError(0, ColumnName, "", e.ErrMissingColumn)
	}
	if err != nil {
		return nil, readError(0, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, e.NewParseError(0, name, "", e.ErrMissingColumn)
		}
	}

	return &Rows{reader: reader, columns: columns}, nil
}

// Next возвращает следующую строку или io.EOF в конце файла.
func (r *Rows) Next() (*usecase.ImportRow, error) {
	record, err := r.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	r.row++
	if err != nil {
		return nil, readError(r.row, err)
	}

	field := func(name string) (string, error) {
		i := r.columns[name]
		if i >= len(record) {
			return "", e.NewParseError(r.row, name, "", e.ErrMissingColumn)
		}
		return record[i], nil
	}

	name, err := field(ColumnName)
	if err != nil {
		return nil, err
	}

	category, err := field(ColumnCategory)
	if err != nil {
		return nil, err
	}

	rawPrice, err := field(ColumnPrice)
	if err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(strings.TrimSpace(rawPrice))
	if err != nil {
		return nil, e.NewParseError(r.row, ColumnPrice, rawPrice, err)
	}
	if price.IsNegative() {
		return nil, e.NewParseError(r.row, ColumnPrice, rawPrice, e.ErrNegativeValue)
	}

	rawQuantity, err := field(ColumnQuantity)
	if err != nil {
		return nil, err
	}
	quantity, err := strconv.ParseInt(strings.TrimSpace(rawQuantity), 10, 64)
	if err != nil {
		return nil, e.NewParseError(r.row, ColumnQuantity, rawQuantity, err)
	}
	if quantity < 0 {
		return nil, e.NewParseError(r.row, ColumnQuantity, rawQuantity, e.ErrNegativeValue)
	}

	return usecase.NewImportRow(r.row, name, category, price, quantity), nil
}

// readError отделяет ошибки формата CSV от сбоев чтения.
func readError(row int, err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return e.NewParseError(row, "", "", err)
	}

	return e.Mark(e.ErrIO, err)
}

func (r *Rows) Close() error {
	if r.closer == nil {
		return nil
	}

	return r.closer.Close()
}
