package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig задаёт файл журнала и параметры ротации.
type RotationConfig struct {
	File      string
	MaxSizeMB int
	MaxFiles  int
}

// DailyFileName возвращает имя журнала вида inventory_20060102.log.
func DailyFileName(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("inventory_%s.log", now.Format("20060102")))
}

// NewRotatingWriter создаёт ротируемый файловый приёмник.
func NewRotatingWriter(cfg RotationConfig) (*lumberjack.Logger, error) {
	if cfg.File == "" {
		return nil, fmt.Errorf("rotation file path must not be empty")
	}

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 5
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
	}, nil
}

// NewFileLogger пишет журнал в ротируемый файл. Возвращённый io.Closer закрывает файл.
func NewFileLogger(cfg RotationConfig, level slog.Level) (Logger, io.Closer, error) {
	w, err := NewRotatingWriter(cfg)
	if err != nil {
		return nil, nil, err
	}

	return NewSlogLoggerWithWriter(w, level), w, nil
}
