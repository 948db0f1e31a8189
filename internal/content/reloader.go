package content

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reloader calls Loader.Load on a fixed interval. It implements
// server.Service. A failed reload is logged and the previous content stays
// active.
type Reloader struct {
	loader   *Loader
	interval time.Duration
	logger   *zap.Logger
	done     chan struct{}
	once     sync.Once
}

// NewReloader creates a Reloader.
//
// Precondition: loader and logger must be non-nil. interval <= 0 makes
// Start block until Stop without reloading.
func NewReloader(loader *Loader, interval time.Duration, logger *zap.Logger) *Reloader {
	return &Reloader{
		loader:   loader,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start blocks, reloading every interval, until Stop is called.
func (r *Reloader) Start() error {
	if r.interval <= 0 {
		<-r.done
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-r.done
		cancel()
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := r.loader.Load(ctx); err != nil {
				r.logger.Error("content reload failed", zap.Error(err))
			}
		case <-r.done:
			return nil
		}
	}
}

// Stop makes Start return. Idempotent.
func (r *Reloader) Stop() {
	r.once.Do(func() { close(r.done) })
}
