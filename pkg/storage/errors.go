package storage

import (
	"errors"

	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	pgLockNotAvailable = "55P03"
	pgDeadlockDetected = "40P01"
)

// translate помечает ошибки блокировки драйвера как e.ErrStorageBusy.
func translate(err error) error {
	if err == nil {
		return nil
	}

	if IsBusy(err) {
		return e.Mark(e.ErrStorageBusy, err)
	}

	return err
}

// IsBusy сообщает, вызвана ли ошибка занятостью хранилища.
func IsBusy(err error) bool {
	if errors.Is(err, e.ErrStorageBusy) {
		return true
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgLockNotAvailable || pgErr.Code == pgDeadlockDetected
	}

	return false
}
