package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"nadlan/server/config"
	"nadlan/server/internal/queue"
	"nadlan/server/internal/store"
)

// CacheWriter persists queued search results to the store
type CacheWriter struct {
	store     store.Store
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.WriteQueue
	startOnce sync.Once
	stopOnce  sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewCacheWriter creates a new cache writer instance
func NewCacheWriter(s store.Store, q *queue.WriteQueue, cfg *config.Config, logger *logrus.Logger) *CacheWriter {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheWriter{
		store:  s,
		queue:  q,
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the queue and starts its workers
func (w *CacheWriter) Start() {
	w.startOnce.Do(func() {
		w.queue.Subscribe(w.processItem)
		w.queue.Start(w.config.CacheWriter.WorkerCount)
	})
}

// Stop flushes pending writes and shuts the workers down
func (w *CacheWriter) Stop() {
	w.stopOnce.Do(func() {
		if err := w.queue.Close(); err != nil {
			w.logger.WithError(err).Error("Failed to close write queue")
		}
		w.cancel()
	})
}

// processItem writes a single entry with retry logic
func (w *CacheWriter) processItem(item queue.Item) error {
	maxRetries := w.config.CacheWriter.MaxRetries
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WithField("key", item.Key).Debugf("Retrying cache write, attempt %d of %d", attempt, maxRetries)
			select {
			case <-w.ctx.Done():
				return fmt.Errorf("cache write cancelled: %w", err)
			case <-time.After(w.config.CacheWriter.RetryDelay):
			}
		}

		err = w.store.Set(w.ctx, item.Key, item.Value, item.TTL)
		if err == nil {
			w.logger.WithFields(logrus.Fields{
				"key":   item.Key,
				"bytes": len(item.Value),
			}).Debug("Stored search result")
			return nil
		}

		w.logger.WithField("key", item.Key).WithError(err).Warn("Cache write failed")
	}

	return fmt.Errorf("failed to write cache entry after %d attempts: %w", maxRetries+1, err)
}
