// Package closer закрывает ресурсы приложения в обратном порядке регистрации.
package closer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const defaultForcedTimeout = 2 * time.Second

// Func — функция освобождения ресурса.
type Func func(ctx context.Context) error

type resource struct {
	name  string
	close Func
}

// Closer освобождает зарегистрированные ресурсы один раз, по принципу LIFO.
type Closer struct {
	mu            sync.Mutex
	resources     []resource
	once          sync.Once
	err           error
	forcedTimeout time.Duration
}

// NewCloser создаёт Closer. forcedTimeout ограничивает принудительное закрытие
// ресурсов, до которых не дошла очередь при отмене контекста Close.
func NewCloser(forcedTimeout time.Duration) *Closer {
	if forcedTimeout <= 0 {
		forcedTimeout = defaultForcedTimeout
	}

	return &Closer{forcedTimeout: forcedTimeout}
}

// Add регистрирует функцию закрытия под именем name.
func (c *Closer) Add(name string, f Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources = append(c.resources, resource{name: name, close: f})
}

// AddCloser регистрирует io.Closer.
func (c *Closer) AddCloser(name string, cl io.Closer) {
	c.Add(name, func(context.Context) error {
		return cl.Close()
	})
}

// Close закрывает ресурсы начиная с последнего. Повторные вызовы возвращают
// результат первого.
func (c *Closer) Close(ctx context.Context) error {
	c.once.Do(func() {
		c.mu.Lock()
		resources := c.resources
		c.mu.Unlock()

		pending, failures := closeInOrder(ctx, resources)
		if len(pending) > 0 {
			failures = append(failures, c.forceClose(pending)...)
			c.err = fmt.Errorf("shutdown interrupted, %d of %d resources closed:\n%s",
				len(resources)-len(pending), len(resources), strings.Join(failures, "\n"))
			return
		}

		if len(failures) > 0 {
			c.err = fmt.Errorf("shutdown finished with error(s):\n%s", strings.Join(failures, "\n"))
		}
	})

	return c.err
}

// closeInOrder возвращает ресурсы, не закрытые до отмены ctx.
func closeInOrder(ctx context.Context, resources []resource) ([]resource, []string) {
	var failures []string
	for i := len(resources) - 1; i >= 0; i-- {
		r := resources[i]
		done := make(chan error, 1)
		go func() { done <- r.close(ctx) }()

		select {
		case err := <-done:
			if err != nil {
				failures = append(failures, fmt.Sprintf("[!] %s: %v", r.name, err))
			}
		case <-ctx.Done():
			return resources[:i+1], failures
		}
	}

	return nil, failures
}

func (c *Closer) forceClose(resources []resource) []string {
	ctx, cancel := context.WithTimeout(context.Background(), c.forcedTimeout)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []string
	)
	for _, r := range resources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.close(ctx); err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("[FORCED] %s: %v", r.name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return failures
}
