package processor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nadlan/server/config"
	"nadlan/server/internal/database"
	"nadlan/server/internal/queue"
)

// MockStore is a mock implementation of store.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(key)
	value, _ := args.Get(0).([]byte)
	return value, args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(key, value, ttl)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.CacheWriter.WorkerCount = 2
	cfg.CacheWriter.MaxRetries = 2
	cfg.CacheWriter.RetryDelay = time.Millisecond
	return cfg
}

func TestNewCacheWriter(t *testing.T) {
	mockStore := &MockStore{}
	writeQueue := queue.NewWriteQueue(10, logrus.New())
	cfg := testConfig()
	logger := logrus.New()

	writer := NewCacheWriter(mockStore, writeQueue, cfg, logger)

	assert.NotNil(t, writer)
	assert.Equal(t, mockStore, writer.store)
	assert.Equal(t, writeQueue, writer.queue)
	assert.Equal(t, cfg, writer.config)
	assert.Equal(t, logger, writer.logger)
}

func TestCacheWriter_ProcessItem(t *testing.T) {
	item := queue.Item{Key: "search:abc", Value: []byte(`{"transactions":[]}`), TTL: time.Minute}

	tests := []struct {
		name      string
		failures  int
		wantErr   bool
		wantCalls int
	}{
		{name: "first attempt succeeds", failures: 0, wantCalls: 1},
		{name: "succeeds after retry", failures: 2, wantCalls: 3},
		{name: "gives up after retries", failures: 3, wantErr: true, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := &MockStore{}
			writer := NewCacheWriter(mockStore, queue.NewWriteQueue(10, logrus.New()), testConfig(), logrus.New())

			if tt.failures > 0 {
				mockStore.On("Set", item.Key, item.Value, item.TTL).Return(errors.New("store down")).Times(tt.failures)
			}
			mockStore.On("Set", item.Key, item.Value, item.TTL).Return(nil)

			err := writer.processItem(item)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "failed to write cache entry after 3 attempts")
			} else {
				assert.NoError(t, err)
			}
			mockStore.AssertNumberOfCalls(t, "Set", tt.wantCalls)
		})
	}
}

func TestCacheWriter_StopAbandonsRetry(t *testing.T) {
	mockStore := &MockStore{}
	cfg := testConfig()
	cfg.CacheWriter.RetryDelay = time.Hour
	writer := NewCacheWriter(mockStore, queue.NewWriteQueue(10, logrus.New()), cfg, logrus.New())

	mockStore.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("store down"))

	writer.cancel()
	err := writer.processItem(queue.Item{Key: "k"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
	mockStore.AssertNumberOfCalls(t, "Set", 1)
}

func TestCacheWriter_StartStop(t *testing.T) {
	mockStore := &MockStore{}
	writeQueue := queue.NewWriteQueue(10, logrus.New())
	writer := NewCacheWriter(mockStore, writeQueue, testConfig(), logrus.New())

	mockStore.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	writer.Start()
	writer.Start()
	require.NoError(t, writeQueue.Push(queue.Item{Key: "a", Value: []byte("1")}))
	require.NoError(t, writeQueue.Push(queue.Item{Key: "b", Value: []byte("2")}))

	// Stop flushes whatever is still buffered
	writer.Stop()
	writer.Stop()

	assert.True(t, writeQueue.IsClosed())
	mockStore.AssertNumberOfCalls(t, "Set", 2)
}

func TestCacheWriterIntegration(t *testing.T) {
	ctx := context.Background()
	logger := logrus.New()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "cache.db"), logger)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	defer db.Close()

	writeQueue := queue.NewWriteQueue(16, logger)
	writer := NewCacheWriter(db, writeQueue, testConfig(), logger)
	writer.Start()

	keys := []string{"search:1", "search:2", "search:3"}
	for _, key := range keys {
		require.NoError(t, writeQueue.Push(queue.Item{Key: key, Value: []byte(key), TTL: time.Hour}))
	}

	writer.Stop()

	for _, key := range keys {
		got, err := db.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte(key), got)
	}
}
