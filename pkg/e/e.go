package e

import (
	"errors"
	"fmt"
)

var (
	// Ошибки импорта
	ErrFileNotFound  = fmt.Errorf("file not found")
	ErrParse         = fmt.Errorf("parse error")
	ErrNegativeValue = fmt.Errorf("value must not be negative")
	ErrMissingColumn = fmt.Errorf("missing required column")

	// Ошибки хранилища
	ErrStorageBusy         = fmt.Errorf("storage busy")
	ErrSchema              = fmt.Errorf("unexpected schema state")
	ErrUnsupportedDriver   = fmt.Errorf("unsupported storage driver")
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки отчёта
	ErrIO = fmt.Errorf("i/o error")

	// 400 / 404
	ErrProductNotFound     = fmt.Errorf("product not found")
	ErrInvalidFilter       = fmt.Errorf("invalid filter")
	ErrStatusBadRequest    = fmt.Errorf("bad request")
	ErrExpectedMultipart   = fmt.Errorf("expected multipart/form-data")
	ErrMissingFields       = fmt.Errorf("missing required fields")
	ErrInternalServerError = fmt.Errorf("internal server error")

	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
)

// ParseError описывает поле строки CSV, которое не удалось привести к нужному типу.
// Row — номер строки данных (с 1), 0 — строка заголовка.
type ParseError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (p *ParseError) Error() string {
	if p.Row == 0 {
		return fmt.Sprintf("header: %s %q: %v", ErrParse, p.Field, p.Err)
	}

	return fmt.Sprintf("row %d: %s in %q (value %q): %v", p.Row, ErrParse, p.Field, p.Value, p.Err)
}

func (p *ParseError) Unwrap() error {
	return p.Err
}

// Is позволяет сравнивать любую ParseError с ErrParse через errors.Is.
func (p *ParseError) Is(target error) bool {
	return target == ErrParse
}

func NewParseError(row int, field, value string, err error) *ParseError {
	return &ParseError{
		Row:   row,
		Field: field,
		Value: value,
		Err:   err,
	}
}

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// Mark добавляет к ошибке сентинел, сохраняя исходную причину в цепочке.
func Mark(sentinel error, err error) error {
	if err == nil || errors.Is(err, sentinel) {
		return err
	}

	return fmt.Errorf("%w: %w", sentinel, err)
}
