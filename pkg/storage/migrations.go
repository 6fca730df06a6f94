package storage

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/DRSN-tech/inventory-tracker/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Initialize создаёт таблицы инвентаря, если их ещё нет. Повторный вызов безопасен:
// применённые миграции пропускаются, а SQL использует CREATE TABLE IF NOT EXISTS,
// поэтому существующая база без таблицы версий принимается без потери данных.
func (s *Storage) Initialize(log logger.Logger) error {
	const (
		op         = "Storage.Initialize"
		sourceName = "iofs"
	)

	src, err := iofs.New(migrationsFS, "migrations/"+string(s.dialect))
	if err != nil {
		return e.Wrap(op, err)
	}

	sqlDb, err := sql.Open(s.driverName, s.dsn)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer sqlDb.Close()

	driver, err := s.migrationDriver(sqlDb)
	if err != nil {
		return e.Wrap(op, translateSchema(err))
	}

	m, err := migrate.NewWithInstance(sourceName, src, string(s.dialect), driver)
	if err != nil {
		return e.Wrap(op, translateSchema(err))
	}

	err = m.Up()
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debugf("schema is up to date")
			return nil
		}
		return e.Wrap(op, translateSchema(err))
	}

	version, _, _ := m.Version()
	log.Infof("schema initialized, version %d", version)
	return nil
}

func (s *Storage) migrationDriver(sqlDb *sql.DB) (database.Driver, error) {
	switch s.dialect {
	case DialectPostgres:
		return postgres.WithInstance(sqlDb, &postgres.Config{})
	default:
		return sqlite.WithInstance(sqlDb, &sqlite.Config{})
	}
}

// translateSchema относит сбой миграции к занятости хранилища или к неожиданному состоянию схемы.
func translateSchema(err error) error {
	if IsBusy(err) {
		return e.Mark(e.ErrStorageBusy, err)
	}

	return e.Mark(e.ErrSchema, err)
}
