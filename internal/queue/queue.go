package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Item is a pending cache write
type Item struct {
	Key   string
	Value []byte
	TTL   time.Duration
}

// WriteQueue is an in-memory queue of cache writes, consumed by subscribed
// handlers off the request path
type WriteQueue struct {
	items    chan Item
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   *logrus.Logger
	handlers []func(Item) error
}

// NewWriteQueue creates a new write queue with the specified buffer size
func NewWriteQueue(bufferSize int, logger *logrus.Logger) *WriteQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &WriteQueue{
		items:    make(chan Item, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(Item) error, 0),
	}
}

// Push adds an item to the queue
func (q *WriteQueue) Push(item Item) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	// Non-blocking send so a slow store never stalls a search
	select {
	case q.items <- item:
		q.logger.WithField("key", item.Key).Debug("Queued cache write")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each item
func (q *WriteQueue) Subscribe(handler func(Item) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items with the given number of workers
func (q *WriteQueue) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.process()
	}
}

// process handles the queue processing loop
func (q *WriteQueue) process() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			q.drain()
			return
		case item := <-q.items:
			q.processItem(item)
		}
	}
}

// drain handles what is left in the buffer after Close
func (q *WriteQueue) drain() {
	for {
		select {
		case item := <-q.items:
			q.processItem(item)
		default:
			return
		}
	}
}

// processItem sends the item to all subscribed handlers
func (q *WriteQueue) processItem(item Item) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(item); err != nil {
			q.logger.WithField("key", item.Key).WithError(err).Error("Handler failed to process cache write")
		}
	}
}

// Close stops accepting items, flushes the buffer and waits for the workers
func (q *WriteQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Len returns the current number of items in the queue
func (q *WriteQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *WriteQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
