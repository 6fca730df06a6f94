package main

import (
	"context"
	"os"

	"github.com/DRSN-tech/inventory-tracker/internal/app"
	config "github.com/DRSN-tech/inventory-tracker/internal/cfg"
	"github.com/DRSN-tech/inventory-tracker/internal/delivery/cli"
	"github.com/DRSN-tech/inventory-tracker/pkg/logger"
)

// @title        Inventory Tracker API
// @version      1.0
// @description  Импорт CSV, поиск продуктов, отчёт и журнал движений склада.
// @BasePath     /api/v1
func main() {
	bootLog := logger.NewSlogLogger()

	cfg, err := config.Load(bootLog)
	if err != nil {
		bootLog.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	log, logCloser, err := app.NewLogger(cfg.Log)
	if err != nil {
		bootLog.Errorf(err, "failed to initialize logger")
		os.Exit(1)
	}
	defer logCloser.Close()

	open := func() (cli.Runtime, error) {
		a, err := app.NewApp(cfg, log)
		if err != nil {
			return nil, err
		}
		return a, nil
	}

	if err := cli.New(open, log, os.Stdin, os.Stdout, os.Stderr).Execute(context.Background(), os.Args[1:]); err != nil {
		logCloser.Close()
		os.Exit(1)
	}
}
