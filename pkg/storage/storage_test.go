package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DRSN-tech/inventory-tracker/internal/cfg"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/DRSN-tech/inventory-tracker/pkg/logger"
	"github.com/DRSN-tech/inventory-tracker/pkg/tr"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStorage(t *testing.T, busyTimeout time.Duration) *Storage {
	t.Helper()

	s, err := Open(&cfg.StorageCfg{
		Driver:      cfg.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "inventory.db"),
		BusyTimeout: busyTimeout,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Initialize(logger.NewNopLogger()))
	return s
}

func tableExists(t *testing.T, s *Storage, name string) bool {
	t.Helper()

	var count int
	err := s.DB().Get(&count, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	require.NoError(t, err)
	return count == 1
}

func countProducts(t *testing.T, s *Storage) int {
	t.Helper()

	var count int
	require.NoError(t, s.DB().Get(&count, `SELECT COUNT(*) FROM products`))
	return count
}

func TestInitializeCreatesTables(t *testing.T) {
	s := openTestStorage(t, time.Second)

	for _, table := range []string{"products", "inventory_events", "event_offsets"} {
		assert.Truef(t, tableExists(t, s, table), "expected table %s to exist", table)
	}
	assert.Equal(t, DialectSQLite, s.Dialect())
}

func TestInitializeIsIdempotent(t *testing.T) {
	s := openTestStorage(t, time.Second)

	_, err := s.DB().Exec(`INSERT INTO products (name, category, current_price, current_quantity) VALUES ('Chaise', 'Mobilier', 49.5, 3)`)
	require.NoError(t, err)

	require.NoError(t, s.Initialize(logger.NewNopLogger()))
	require.NoError(t, s.Initialize(logger.NewNopLogger()))

	assert.Equal(t, 1, countProducts(t, s))
}

func TestInitializeAdoptsExistingTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	c := &cfg.StorageCfg{Driver: cfg.DriverSQLite, Path: path, BusyTimeout: time.Second}

	legacy, err := Open(c)
	require.NoError(t, err)
	_, err = legacy.DB().Exec(`
		CREATE TABLE products (
			id INTEGER PRIMARY KEY, name TEXT NOT NULL, category TEXT,
			current_price REAL, current_quantity INTEGER DEFAULT 0
		);
		CREATE TABLE inventory_events (
			id INTEGER PRIMARY KEY, product_id INTEGER, event_type TEXT,
			quantity_change INTEGER, price REAL, timestamp DATETIME,
			FOREIGN KEY (product_id) REFERENCES products(id)
		);
		INSERT INTO products (name, category, current_price, current_quantity) VALUES ('Lampe', 'Mobilier', 20, 1);
	`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	s, err := Open(c)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Initialize(logger.NewNopLogger()))
	assert.Equal(t, 1, countProducts(t, s))
	assert.True(t, tableExists(t, s, "event_offsets"))
}

func TestInitializeDirtySchema(t *testing.T) {
	s := openTestStorage(t, time.Second)

	_, err := s.DB().Exec(`UPDATE schema_migrations SET dirty = 1`)
	require.NoError(t, err)

	err = s.Initialize(logger.NewNopLogger())
	assert.ErrorIs(t, err, e.ErrSchema)
}

func TestWithConnectionCommits(t *testing.T) {
	s := openTestStorage(t, time.Second)

	err := s.WithConnection(context.Background(), func(ctx context.Context) error {
		tx, err := tr.TxFromCtx(ctx, s.DB())
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO products (name, current_price, current_quantity) VALUES ('Stylo', 1.2, 100)`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countProducts(t, s))
}

func TestWithConnectionRollsBackOnError(t *testing.T) {
	s := openTestStorage(t, time.Second)
	boom := errors.New("boom")

	err := s.WithConnection(context.Background(), func(ctx context.Context) error {
		tx, err := tr.TxFromCtx(ctx, s.DB())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO products (name, current_price, current_quantity) VALUES ('Stylo', 1.2, 100)`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countProducts(t, s))

	// блокировка освобождена после ошибки
	require.NoError(t, s.WithConnection(context.Background(), func(ctx context.Context) error { return nil }))
}

func TestWithConnectionBusy(t *testing.T) {
	s := openTestStorage(t, 50*time.Millisecond)

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.WithConnection(context.Background(), func(ctx context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	err := s.WithConnection(context.Background(), func(ctx context.Context) error { return nil })
	close(done)

	require.ErrorIs(t, err, e.ErrStorageBusy)
	assert.True(t, IsBusy(err))
}

func TestWithConnectionNested(t *testing.T) {
	s := openTestStorage(t, 50*time.Millisecond)

	err := s.WithConnection(context.Background(), func(ctx context.Context) error {
		return s.WithConnection(ctx, func(ctx context.Context) error {
			_, err := tr.TxFromCtx(ctx, s.DB())
			return err
		})
	})
	assert.NoError(t, err)
}

func TestTxFromCtxOutsideScope(t *testing.T) {
	s := openTestStorage(t, time.Second)

	_, err := tr.TxFromCtx(context.Background(), s.DB())
	assert.ErrorIs(t, err, e.ErrTransactionNotFound)
	assert.NotNil(t, tr.Executor(context.Background(), s.DB()))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&cfg.StorageCfg{Driver: "oracle"})
	assert.ErrorIs(t, err, e.ErrUnsupportedDriver)
}

func TestLikeOperator(t *testing.T) {
	assert.Equal(t, "LIKE", DialectSQLite.LikeOperator())
	assert.Equal(t, "ILIKE", DialectPostgres.LikeOperator())
}

func insertProduct(ctx context.Context, s *Storage, name string) error {
	tx, err := tr.TxFromCtx(ctx, s.DB())
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO products (name, current_price, current_quantity) VALUES (?, 1, 1)`, name)
	return err
}

func TestWithConnectionDatabaseLockIsBusy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")

	owner, err := Open(&cfg.StorageCfg{Driver: cfg.DriverSQLite, Path: path, BusyTimeout: time.Second})
	require.NoError(t, err)
	defer owner.Close()
	require.NoError(t, owner.Initialize(logger.NewNopLogger()))

	other, err := Open(&cfg.StorageCfg{Driver: cfg.DriverSQLite, Path: path, BusyTimeout: 100 * time.Millisecond})
	require.NoError(t, err)
	defer other.Close()

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- owner.WithConnection(context.Background(), func(ctx context.Context) error {
			if err := insertProduct(ctx, owner, "Stylo"); err != nil {
				close(held)
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	started := time.Now()
	err = other.WithConnection(context.Background(), func(ctx context.Context) error {
		return insertProduct(ctx, other, "Gomme")
	})
	elapsed := time.Since(started)
	close(release)
	require.NoError(t, <-done)

	require.ErrorIs(t, err, e.ErrStorageBusy)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 1, countProducts(t, owner))

	// после освобождения блокировки вторая база снова пишет
	require.NoError(t, other.WithConnection(context.Background(), func(ctx context.Context) error {
		return insertProduct(ctx, other, "Gomme")
	}))
	assert.Equal(t, 2, countProducts(t, owner))
}

func TestIsBusyDriverErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		busy bool
	}{
		{name: "lock not available", err: &pgconn.PgError{Code: "55P03"}, busy: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, busy: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, busy: false},
		{name: "wrapped sentinel", err: fmt.Errorf("op: %w", e.ErrStorageBusy), busy: true},
		{name: "other", err: errors.New("boom"), busy: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.busy, IsBusy(tt.err))
			assert.Equal(t, tt.busy, errors.Is(translate(fmt.Errorf("query: %w", tt.err)), e.ErrStorageBusy))
		})
	}
}

func TestResolveDriverPostgresLockTimeout(t *testing.T) {
	driver, dsn, dialect, err := resolveDriver(&cfg.StorageCfg{
		Driver:      cfg.DriverPostgres,
		BusyTimeout: 1500 * time.Millisecond,
		Postgres:    &cfg.PGDBCfg{Host: "db", Port: "5432", User: "inv", Password: "secret", DBName: "inventory", SSLMode: "disable"},
	})
	require.NoError(t, err)

	assert.Equal(t, "pgx", driver)
	assert.Equal(t, DialectPostgres, dialect)
	assert.Contains(t, dsn, "dbname=inventory")
	assert.Contains(t, dsn, "lock_timeout=1500")
}

func TestOpenPathWithURIMetacharacters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock 100% ?#1.db")

	s, err := Open(&cfg.StorageCfg{Driver: cfg.DriverSQLite, Path: path, BusyTimeout: time.Second})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Initialize(logger.NewNopLogger()))

	assert.FileExists(t, path)
	assert.Equal(t, "dir/stock%20100%25%20%3F%231.db", escapePath("dir/stock 100% ?#1.db"))
}
