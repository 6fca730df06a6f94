// Package storage владеет реляционным хранилищем инвентаря: подключение,
// создание схемы и области соединения (scope) с ограниченным ожиданием блокировки.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DRSN-tech/inventory-tracker/internal/cfg"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Dialect определяет SQL-диалект хранилища.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const defaultBusyTimeout = 20 * time.Second

// LikeOperator возвращает оператор регистронезависимого сравнения по шаблону.
// В SQLite LIKE сворачивает регистр только для ASCII.
func (d Dialect) LikeOperator() string {
	if d == DialectPostgres {
		return "ILIKE"
	}

	return "LIKE"
}

type scopeKey struct{}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Storage инкапсулирует подключение к хранилищу и управление схемой.
type Storage struct {
	db          *sqlx.DB
	driverName  string
	dsn         string
	dialect     Dialect
	busyTimeout time.Duration
	trManager   *manager.Manager
	scope       chan struct{}
}

// Open открывает хранилище согласно конфигурации и проверяет соединение.
func Open(c *cfg.StorageCfg) (*Storage, error) {
	const op = "Storage.Open"

	driverName, dsn, dialect, err := resolveDriver(c)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if dialect == DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
			return nil, e.Wrap(op, e.Mark(e.ErrIO, err))
		}
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if dialect == DialectSQLite {
		db.SetMaxOpenConns(4)
	}

	busyTimeout := c.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	s := &Storage{
		db:          db,
		driverName:  driverName,
		dsn:         dsn,
		dialect:     dialect,
		busyTimeout: busyTimeout,
		trManager:   manager.Must(trmsqlx.NewDefaultFactory(db)),
		scope:       make(chan struct{}, 1),
	}

	if err := s.Ping(); err != nil {
		_ = db.Close()
		return nil, e.Wrap(op, err)
	}

	return s, nil
}

func resolveDriver(c *cfg.StorageCfg) (driverName, dsn string, dialect Dialect, err error) {
	timeout := c.BusyTimeout
	if timeout <= 0 {
		timeout = defaultBusyTimeout
	}

	switch c.Driver {
	case "", cfg.DriverSQLite:
		if c.Path == "" {
			return "", "", "", fmt.Errorf("sqlite path is empty")
		}

		dsn = fmt.Sprintf(
			"file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_time_format=sqlite",
			escapePath(c.Path),
			timeout.Milliseconds(),
		)
		return "sqlite", dsn, DialectSQLite, nil
	case cfg.DriverPostgres:
		if c.Postgres == nil {
			return "", "", "", fmt.Errorf("postgres config is empty")
		}
		// lock_timeout уходит в параметры сессии: ожидание блокировки строки
		// ограничено так же, как busy_timeout в SQLite.
		dsn = fmt.Sprintf("%s lock_timeout=%d", c.Postgres.DSN(), timeout.Milliseconds())
		return "pgx", dsn, DialectPostgres, nil
	default:
		return "", "", "", e.Wrap(c.Driver, e.ErrUnsupportedDriver)
	}
}

// escapePath кодирует сегменты пути для URI file:, сохраняя разделители.
func escapePath(path string) string {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}

func (s *Storage) Ping() error {
	const op = "Storage.Ping"
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return e.Wrap(op, translate(err))
	}

	return nil
}

// WithConnection выполняет fn в области соединения: захватывает блокировку хранилища
// не дольше busyTimeout (иначе e.ErrStorageBusy), открывает транзакцию, фиксирует её
// при успехе и откатывает при ошибке. Блокировка освобождается на любом пути выхода.
// Вложенный вызов с контекстом внешней области присоединяется к её транзакции.
func (s *Storage) WithConnection(ctx context.Context, fn func(ctx context.Context) error) error {
	const op = "Storage.WithConnection"

	if owner, ok := ctx.Value(scopeKey{}).(*Storage); ok && owner == s {
		return s.trManager.Do(ctx, fn)
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer release()

	ctx = context.WithValue(ctx, scopeKey{}, s)
	if err := s.trManager.Do(ctx, fn); err != nil {
		return translate(err)
	}

	return nil
}

// acquire захватывает блокировку области соединения с таймаутом.
func (s *Storage) acquire(ctx context.Context) (func(), error) {
	timer := time.NewTimer(s.busyTimeout)
	defer timer.Stop()

	select {
	case s.scope <- struct{}{}:
		return func() { <-s.scope }, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: lock not acquired within %s", e.ErrStorageBusy, s.busyTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DB возвращает пул соединений. Репозитории получают транзакцию через pkg/tr.
func (s *Storage) DB() *sqlx.DB {
	return s.db
}

func (s *Storage) Dialect() Dialect {
	return s.dialect
}

// Rebind переписывает плейсхолдеры ? под драйвер хранилища.
func (s *Storage) Rebind(query string) string {
	return s.db.Rebind(query)
}

// Close корректно закрывает пул соединений.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}
