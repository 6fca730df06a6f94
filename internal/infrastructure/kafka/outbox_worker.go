package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/inventory-tracker/internal/cfg"
	"github.com/DRSN-tech/inventory-tracker/internal/usecase"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/DRSN-tech/inventory-tracker/pkg/jitter"
	"github.com/DRSN-tech/inventory-tracker/pkg/logger"
)

// ConsumerName — имя потребителя журнала, под которым хранится смещение публикации.
const ConsumerName = "kafka-publisher"

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 50
	maxBackoff          = time.Minute
)

// OutboxWorker публикует новые события журнала в Kafka. Журнал служит outbox:
// после успешной отправки сдвигается только смещение потребителя.
type OutboxWorker struct {
	feed         usecase.EventFeed
	producer     usecase.MessageProducer
	logger       logger.Logger
	pollInterval time.Duration
	batchSize    int
	stop         chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewOutboxWorker(
	feed usecase.EventFeed,
	producer usecase.MessageProducer,
	logger logger.Logger,
	cfg *cfg.KafkaCfg,
) *OutboxWorker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &OutboxWorker{
		feed:         feed,
		producer:     producer,
		logger:       logger,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		stop:         make(chan struct{}),
	}
}

func (w *OutboxWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Stop останавливает воркер и ждёт завершения текущей пачки.
func (w *OutboxWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *OutboxWorker) run(ctx context.Context) {
	w.logger.Infof("Draining pending inventory events on startup...")

	attempt := 0
	for {
		wait := w.pollInterval

		if err := w.drain(ctx); err != nil {
			wait = jitter.NewBackoff(w.pollInterval, maxBackoff).Next(attempt)
			attempt++
			if isRetryableError(err) {
				w.logger.Warnf("Temporary Kafka failure, retry in %s: %v", wait, err)
			} else {
				w.logger.Errorf(err, "publish batch failed, retry in %s", wait)
			}
		} else {
			attempt = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.Infof("Worker stopped by context cancellation")
			return
		case <-w.stop:
			timer.Stop()
			w.logger.Infof("Worker stopped")
			return
		case <-timer.C:
		}
	}
}

// drain публикует пачки, пока журнал не будет исчерпан.
func (w *OutboxWorker) drain(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stop:
			return nil
		default:
		}

		hasMore, err := w.processBatch(ctx)
		if err != nil || !hasMore {
			return err
		}
	}
}

// processBatch отправляет одну пачку и подтверждает её. Возвращает true,
// если пачка была полной и в журнале могут остаться события.
func (w *OutboxWorker) processBatch(ctx context.Context) (bool, error) {
	feed, err := w.feed.PendingEvents(ctx, ConsumerName, w.batchSize)
	if err != nil {
		return false, e.Wrap("load pending events", err)
	}

	if len(feed.Events) == 0 {
		return false, nil
	}

	if err := w.producer.WriteEvents(ctx, feed.Events); err != nil {
		return false, e.Wrap("publish events", err)
	}

	if err := w.feed.AckEvents(ctx, ConsumerName, feed.LastID); err != nil {
		return false, e.Wrap("ack events", err)
	}

	w.logger.Debugf("published %d inventory events up to id %d", len(feed.Events), feed.LastID)
	return len(feed.Events) == w.batchSize, nil
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, e.ErrStorageBusy) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"connection reset",
		"broken pipe",
		"no such host",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}
	return false
}
