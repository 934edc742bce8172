package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewWriteQueue(t *testing.T) {
	logger := logrus.New()
	q := NewWriteQueue(10, logger)
	assert.NotNil(t, q)
	assert.Equal(t, 10, q.maxSize)
	assert.False(t, q.IsClosed())
}

func TestWriteQueue_Push(t *testing.T) {
	logger := logrus.New()
	q := NewWriteQueue(2, logger)

	// Test successful push
	err := q.Push(Item{Key: "a"})
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	// Test queue full
	_ = q.Push(Item{Key: "b"})
	err = q.Push(Item{Key: "c"})
	assert.Equal(t, ErrQueueFull, err)

	// Test closed queue
	q.Close()
	err = q.Push(Item{Key: "d"})
	assert.Equal(t, ErrQueueClosed, err)
}

func TestWriteQueue_Subscribe(t *testing.T) {
	logger := logrus.New()
	q := NewWriteQueue(10, logger)

	var processed []Item
	var mu sync.Mutex

	// Add handler
	q.Subscribe(func(item Item) error {
		mu.Lock()
		processed = append(processed, item)
		mu.Unlock()
		return nil
	})

	// Start queue
	q.Start(1)

	// Push items
	assert.NoError(t, q.Push(Item{Key: "k1", Value: []byte("v1"), TTL: time.Minute}))
	assert.NoError(t, q.Push(Item{Key: "k2", Value: []byte("v2")}))

	// Wait for processing
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(processed) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "k1", processed[0].Key)
	assert.Equal(t, time.Minute, processed[0].TTL)
	assert.Equal(t, "k2", processed[1].Key)
	mu.Unlock()

	q.Close()
}

func TestWriteQueue_Close(t *testing.T) {
	logger := logrus.New()
	q := NewWriteQueue(10, logger)

	// Test first close
	err := q.Close()
	assert.NoError(t, err)
	assert.True(t, q.IsClosed())

	// Test second close (should be no-op)
	err = q.Close()
	assert.NoError(t, err)
}

func TestWriteQueue_CloseFlushesBuffer(t *testing.T) {
	logger := logrus.New()
	q := NewWriteQueue(10, logger)

	var count int
	var mu sync.Mutex
	q.Subscribe(func(item Item) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	// Pushed before any worker runs
	for i := 0; i < 5; i++ {
		assert.NoError(t, q.Push(Item{Key: "k"}))
	}

	q.Start(2)
	assert.NoError(t, q.Close())

	mu.Lock()
	assert.Equal(t, 5, count)
	mu.Unlock()
}

func TestWriteQueue_ProcessItem(t *testing.T) {
	logger := logrus.New()
	q := NewWriteQueue(10, logger)

	var wg sync.WaitGroup
	processedItems := 0
	var mu sync.Mutex

	// Add multiple handlers, one of them failing
	for i := 0; i < 3; i++ {
		wg.Add(1)
		fail := i == 1
		q.Subscribe(func(item Item) error {
			mu.Lock()
			processedItems++
			mu.Unlock()
			wg.Done()
			if fail {
				return errors.New("store down")
			}
			return nil
		})
	}

	// Start queue
	q.Start(1)

	err := q.Push(Item{Key: "k"})
	assert.NoError(t, err)

	// Wait for all handlers
	wg.Wait()

	// A failing handler does not stop the others
	mu.Lock()
	assert.Equal(t, 3, processedItems)
	mu.Unlock()

	q.Close()
}
