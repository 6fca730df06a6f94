package sqldb

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/inventory-tracker/internal/cfg"
	"github.com/DRSN-tech/inventory-tracker/internal/domain"
	"github.com/DRSN-tech/inventory-tracker/internal/repository/sqldb/converter"
	"github.com/DRSN-tech/inventory-tracker/internal/usecase"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/DRSN-tech/inventory-tracker/pkg/logger"
	"github.com/DRSN-tech/inventory-tracker/pkg/storage"
	"github.com/DRSN-tech/inventory-tracker/pkg/tr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres поднимает контейнер PostgreSQL на время теста.
// Без Docker тест пропускается.
func startPostgres(t *testing.T) *cfg.PGDBCfg {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres container skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("inventory_test"),
		tcPostgres.WithUsername("inventory"),
		tcPostgres.WithPassword("inventory"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return &cfg.PGDBCfg{
		Host:     host,
		Port:     port.Port(),
		User:     "inventory",
		Password: "inventory",
		DBName:   "inventory_test",
		SSLMode:  "disable",
	}
}

func openPostgres(t *testing.T, pg *cfg.PGDBCfg, busyTimeout time.Duration) *storage.Storage {
	t.Helper()

	s, err := storage.Open(&cfg.StorageCfg{Driver: cfg.DriverPostgres, BusyTimeout: busyTimeout, Postgres: pg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Initialize(logger.NewNopLogger()))

	return s
}

func newPostgresRepos(s *storage.Storage) *repos {
	return &repos{
		storage:  s,
		products: NewProductRepo(s, converter.NewProductConverterImpl()),
		category: NewCategoryRepo(s, converter.NewCategoryTotalsConverterImpl()),
		events:   NewInventoryEventRepo(s, converter.NewInventoryEventConverterImpl()),
		offsets:  NewEventOffsetRepo(s),
	}
}

func TestPostgresDialect(t *testing.T) {
	pg := startPostgres(t)
	s := openPostgres(t, pg, time.Second)
	r := newPostgresRepos(s)
	ctx := context.Background()

	require.NoError(t, s.Initialize(logger.NewNopLogger()), "initialize twice")
	assert.Equal(t, storage.DialectPostgres, s.Dialect())

	seeded := r.seed(t,
		domain.NewProduct("Ordinateur Test", "Électronique", price("999.99"), 5),
		domain.NewProduct("Bureau Test", "Mobilier", price("299.99"), 3),
		domain.NewProduct("Souris 100%", "Électronique", price("19.90"), 40),
		domain.NewProduct("Vis", "", price("0.10"), 100),
	)

	t.Run("find", func(t *testing.T) {
		str := func(s string) *string { return &s }
		dec := func(s string) *decimal.Decimal { d := price(s); return &d }

		tests := []struct {
			name   string
			filter usecase.ProductFilter
			want   []string
		}{
			{name: "all in id order", want: []string{"Ordinateur Test", "Bureau Test", "Souris 100%", "Vis"}},
			{name: "name case insensitive", filter: usecase.ProductFilter{Name: str("ORDI")}, want: []string{"Ordinateur Test"}},
			{name: "percent literal", filter: usecase.ProductFilter{Name: str("0%")}, want: []string{"Souris 100%"}},
			{name: "category", filter: usecase.ProductFilter{Category: str("Mobilier")}, want: []string{"Bureau Test"}},
			{name: "price range inclusive", filter: usecase.ProductFilter{MinPrice: dec("19.90"), MaxPrice: dec("299.99")}, want: []string{"Bureau Test", "Souris 100%"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var got []domain.Product
				err := s.WithConnection(ctx, func(ctx context.Context) error {
					var err error
					got, err = r.products.Find(ctx, tt.filter)
					return err
				})
				require.NoError(t, err)

				names := make([]string, 0, len(got))
				for _, p := range got {
					names = append(names, p.Name)
				}
				assert.Equal(t, tt.want, names)
			})
		}
	})

	t.Run("numeric round trip", func(t *testing.T) {
		got, err := r.products.GetByID(ctx, seeded[0].ID)
		require.NoError(t, err)
		assert.True(t, price("999.99").Equal(got.Price), got.Price.String())
	})

	t.Run("category totals", func(t *testing.T) {
		totals, err := r.category.Totals(ctx)
		require.NoError(t, err)
		require.Len(t, totals, 3)

		// порядок именованных категорий зависит от collation базы, пустая всегда последняя
		assert.Equal(t, "", totals[2].Category)
		byName := map[string]domain.CategoryTotals{}
		for _, ct := range totals[:2] {
			byName[ct.Category] = ct
		}
		electronics := byName["Électronique"]
		assert.Equal(t, int64(2), electronics.Products)
		assert.Equal(t, int64(45), electronics.Quantity)
		assert.True(t, price("5795.95").Equal(electronics.Value), electronics.Value.String())
		assert.Contains(t, byName, "Mobilier")
	})

	t.Run("events and offsets", func(t *testing.T) {
		at := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
		err := s.WithConnection(ctx, func(ctx context.Context) error {
			for _, p := range seeded {
				if _, err := r.events.Append(ctx, domain.NewAddEvent(&p, at, "batch-pg")); err != nil {
					return err
				}
			}
			return r.offsets.Save(ctx, "kafka-publisher", 2)
		})
		require.NoError(t, err)

		history, err := r.events.ListByProduct(ctx, seeded[0].ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.True(t, at.Equal(history[0].Timestamp))
		assert.Equal(t, "batch-pg", history[0].BatchID)

		offset, err := r.offsets.Get(ctx, "kafka-publisher")
		require.NoError(t, err)
		pending, err := r.events.ListAfter(ctx, offset, 10)
		require.NoError(t, err)
		assert.Len(t, pending, len(seeded)-2)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := r.products.GetByID(ctx, 1<<40)
		assert.ErrorIs(t, err, e.ErrProductNotFound)
	})
}

func TestPostgresRowLockIsBusy(t *testing.T) {
	pg := startPostgres(t)
	owner := openPostgres(t, pg, time.Second)
	other := openPostgres(t, pg, 200*time.Millisecond)
	ctx := context.Background()

	seeded := newPostgresRepos(owner).seed(t, domain.NewProduct("Stylo", "Bureau", price("1.50"), 10))[0]

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- owner.WithConnection(ctx, func(ctx context.Context) error {
			tx, err := tr.TxFromCtx(ctx, owner.DB())
			if err == nil {
				_, err = tx.ExecContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, seeded.ID)
			}
			close(held)
			if err != nil {
				return err
			}
			<-release
			return nil
		})
	}()
	<-held

	started := time.Now()
	err := other.WithConnection(ctx, func(ctx context.Context) error {
		tx, err := tr.TxFromCtx(ctx, other.DB())
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE products SET current_quantity = 0 WHERE id = $1`, seeded.ID)
		return err
	})
	elapsed := time.Since(started)
	close(release)
	require.NoError(t, <-done)

	require.ErrorIs(t, err, e.ErrStorageBusy)
	assert.Less(t, elapsed, time.Second)
}
