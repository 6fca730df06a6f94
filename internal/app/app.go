package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	config "github.com/DRSN-tech/inventory-tracker/internal/cfg"
	v1Http "github.com/DRSN-tech/inventory-tracker/internal/delivery/v1/http"
	"github.com/DRSN-tech/inventory-tracker/internal/infrastructure/csvsource"
	"github.com/DRSN-tech/inventory-tracker/internal/infrastructure/kafka"
	"github.com/DRSN-tech/inventory-tracker/internal/infrastructure/report"
	"github.com/DRSN-tech/inventory-tracker/internal/repository/sqldb"
	"github.com/DRSN-tech/inventory-tracker/internal/repository/sqldb/converter"
	"github.com/DRSN-tech/inventory-tracker/internal/usecase"
	"github.com/DRSN-tech/inventory-tracker/pkg/closer"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/DRSN-tech/inventory-tracker/pkg/logger"
	"github.com/DRSN-tech/inventory-tracker/pkg/storage"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	shutdownTimeout = 10 * time.Second
	topicTimeout    = 10 * time.Second
)

// App связывает хранилище, репозитории и сценарии инвентаря.
type App struct {
	cfg       *config.Config
	logger    logger.Logger
	storage   *storage.Storage
	inventory *usecase.InventoryUseCase
	closer    *closer.Closer
}

// NewApp открывает хранилище, приводит схему к актуальной версии и собирает сценарии.
func NewApp(cfg *config.Config, logger logger.Logger) (*App, error) {
	db, err := initStorage(logger, cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	cl := closer.NewCloser(2 * time.Second)
	cl.AddCloser("storage", db)

	productRepo := sqldb.NewProductRepo(db, converter.NewProductConverterImpl())
	categoryRepo := sqldb.NewCategoryRepo(db, converter.NewCategoryTotalsConverterImpl())
	eventRepo := sqldb.NewInventoryEventRepo(db, converter.NewInventoryEventConverterImpl())
	offsetRepo := sqldb.NewEventOffsetRepo(db)

	inventoryUC := usecase.NewInventoryUC(
		db,
		productRepo,
		categoryRepo,
		eventRepo,
		offsetRepo,
		csvsource.NewSource(),
		report.NewTextRenderer(),
		logger,
	)

	return &App{
		cfg:       cfg,
		logger:    logger,
		storage:   db,
		inventory: inventoryUC,
		closer:    cl,
	}, nil
}

// Inventory возвращает сценарии инвентаря.
func (a *App) Inventory() usecase.InventoryUC {
	return a.inventory
}

// Serve запускает HTTP API и, если заданы брокеры, публикацию событий в Kafka.
// Возвращается после отмены ctx или падения HTTP-сервера.
func (a *App) Serve(ctx context.Context) error {
	r := chi.NewRouter()
	router := v1Http.NewRouter(r, a.logger)
	router.Init(a.inventory)

	httpSrv := v1Http.NewServer(r, a.cfg.Http)

	if a.cfg.Kafka.Enabled() {
		if err := a.startPublisher(ctx); err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
	} else {
		a.logger.Infof("KAFKA_BROKERS is empty, event publishing disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-ctx.Done():
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	return appErr
}

func (a *App) startPublisher(ctx context.Context) error {
	producer, err := kafka.NewProducer(a.logger, a.cfg.Kafka)
	if err != nil {
		return err
	}
	a.closer.AddCloser("kafka producer", producer)

	if err := producer.EnsureTopic(topicTimeout); err != nil {
		a.logger.Warnf("failed to ensure kafka topic %s: %v", a.cfg.Kafka.Topic, err)
	}

	worker := kafka.NewOutboxWorker(a.inventory, producer, a.logger, a.cfg.Kafka)
	worker.Start(ctx)
	a.closer.Add("outbox worker", func(context.Context) error {
		worker.Stop()
		return nil
	})

	a.logger.Infof("publishing inventory events to %s", a.cfg.Kafka.Topic)
	return nil
}

// Close освобождает ресурсы в обратном порядке.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.closer.Close(ctx); err != nil {
		return err
	}

	a.logger.Infof("Application shutdown complete")
	return nil
}

func initStorage(logger logger.Logger, cfg *config.Config) (*storage.Storage, error) {
	db, err := storage.Open(cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to open storage")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Initialize(logger); err != nil {
		logger.Errorf(err, "failed to initialize schema")
		_ = db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}

// NewLogger строит журнал по конфигурации. LOG_FILE, указывающий на каталог,
// получает ежедневный файл inventory_YYYYMMDD.log.
func NewLogger(cfg *config.LogCfg) (logger.Logger, io.Closer, error) {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if cfg.File == "" {
		return logger.NewSlogLoggerWithWriter(os.Stderr, level), io.NopCloser(nil), nil
	}

	path := cfg.File
	if info, err := os.Stat(path); (err == nil && info.IsDir()) || strings.HasSuffix(path, string(os.PathSeparator)) {
		path = logger.DailyFileName(path, time.Now())
	}

	return logger.NewFileLogger(logger.RotationConfig{File: path}, level)
}
