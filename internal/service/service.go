// Package service exposes the caller-facing operations: searches backed by
// the result cache, statistics, city lookup and map export.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"nadlan/server/config"
	"nadlan/server/internal/aggregator"
	"nadlan/server/internal/geometry"
	"nadlan/server/internal/metrics"
	"nadlan/server/internal/models"
	"nadlan/server/internal/queue"
	"nadlan/server/internal/stats"
	"nadlan/server/internal/store"
)

const cacheKeyPrefix = "search:"

// Searcher runs an aggregated search
type Searcher interface {
	Search(ctx context.Context, criteria models.SearchCriteria) (aggregator.SearchResult, error)
}

// Enqueuer accepts cache writes for background persistence
type Enqueuer interface {
	Push(item queue.Item) error
}

// StatisticsResult is the statistics of one search
type StatisticsResult struct {
	Statistics models.MarketStatistics `json:"statistics"`
	Synthetic  bool                    `json:"synthetic"`
}

// Options configure a MarketService. Without a Store results are not cached,
// without a Queue cache writes happen inline.
type Options struct {
	Store    store.Store
	Queue    Enqueuer
	CacheTTL time.Duration
	Metrics  *metrics.Metrics
	Logger   *logrus.Logger
}

type MarketService struct {
	searcher Searcher
	cities   *config.CityDirectory
	stats    *stats.Engine
	store    store.Store
	queue    Enqueuer
	ttl      time.Duration
	metrics  *metrics.Metrics
	logger   *logrus.Logger
}

func NewMarketService(searcher Searcher, cities *config.CityDirectory, statsEngine *stats.Engine, opts Options) *MarketService {
	if cities == nil {
		cities = config.DefaultCityDirectory()
	}
	if statsEngine == nil {
		statsEngine = stats.NewEngine(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &MarketService{
		searcher: searcher,
		cities:   cities,
		stats:    statsEngine,
		store:    opts.Store,
		queue:    opts.Queue,
		ttl:      opts.CacheTTL,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
}

// Search returns the cached result for criteria, or runs the search and
// caches it. Synthetic results are never cached.
func (s *MarketService) Search(ctx context.Context, criteria models.SearchCriteria) (aggregator.SearchResult, error) {
	key, err := CacheKey(criteria)
	if err != nil {
		return aggregator.SearchResult{}, err
	}

	if result, ok := s.lookup(ctx, key); ok {
		return result, nil
	}

	result, err := s.searcher.Search(ctx, criteria)
	if err != nil {
		return aggregator.SearchResult{}, fmt.Errorf("failed to search transactions: %w", err)
	}

	if !result.Synthetic {
		s.enqueue(ctx, key, result)
	}
	return result, nil
}

// Refresh runs the search for criteria and stores the result, bypassing
// any cached entry
func (s *MarketService) Refresh(ctx context.Context, criteria models.SearchCriteria) error {
	if s.store == nil {
		return nil
	}

	key, err := CacheKey(criteria)
	if err != nil {
		return err
	}

	result, err := s.searcher.Search(ctx, criteria)
	if err != nil {
		return fmt.Errorf("failed to search transactions: %w", err)
	}
	if result.Synthetic {
		// Leave the previous entry to expire rather than replacing it
		return nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode search result: %w", err)
	}
	if err := s.store.Set(ctx, key, payload, s.ttl); err != nil {
		return fmt.Errorf("failed to store search result: %w", err)
	}
	return nil
}

// Statistics computes market statistics over the search result for criteria
func (s *MarketService) Statistics(ctx context.Context, criteria models.SearchCriteria) (StatisticsResult, error) {
	result, err := s.Search(ctx, criteria)
	if err != nil {
		return StatisticsResult{}, err
	}
	return StatisticsResult{
		Statistics: s.stats.Compute(result.Transactions),
		Synthetic:  result.Synthetic,
	}, nil
}

// ComputeStatistics computes market statistics over caller supplied
// transactions
func (s *MarketService) ComputeStatistics(transactions []models.Transaction) models.MarketStatistics {
	return s.stats.Compute(transactions)
}

// Cities lists the cities matching query, every city for an empty query
func (s *MarketService) Cities(query string) []config.City {
	return s.cities.FindByNameOrCode(query)
}

// GeoJSON returns the search result for criteria as a point FeatureCollection
func (s *MarketService) GeoJSON(ctx context.Context, criteria models.SearchCriteria) (*geojson.FeatureCollection, error) {
	result, err := s.Search(ctx, criteria)
	if err != nil {
		return nil, err
	}
	return geometry.TransactionsToFeatureCollection(result.Transactions), nil
}

// CacheKey derives the store key for criteria
func CacheKey(criteria models.SearchCriteria) (string, error) {
	payload, err := json.Marshal(criteria)
	if err != nil {
		return "", fmt.Errorf("failed to encode criteria: %w", err)
	}
	sum := sha256.Sum256(payload)
	return cacheKeyPrefix + hex.EncodeToString(sum[:]), nil
}

func (s *MarketService) lookup(ctx context.Context, key string) (aggregator.SearchResult, bool) {
	if s.store == nil {
		return aggregator.SearchResult{}, false
	}

	payload, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.WithField("key", key).WithError(err).Warn("Cache lookup failed")
		}
		s.metrics.ObserveCache(false)
		return aggregator.SearchResult{}, false
	}

	var result aggregator.SearchResult
	if err := json.Unmarshal(payload, &result); err != nil {
		s.logger.WithField("key", key).WithError(err).Warn("Discarding unreadable cache entry")
		s.metrics.ObserveCache(false)
		return aggregator.SearchResult{}, false
	}

	s.metrics.ObserveCache(true)
	return result, true
}

func (s *MarketService) enqueue(ctx context.Context, key string, result aggregator.SearchResult) {
	if s.store == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to encode search result for cache")
		return
	}

	if s.queue == nil {
		if err := s.store.Set(ctx, key, payload, s.ttl); err != nil {
			s.logger.WithField("key", key).WithError(err).Warn("Cache write failed")
		}
		return
	}

	if err := s.queue.Push(queue.Item{Key: key, Value: payload, TTL: s.ttl}); err != nil {
		s.logger.WithField("key", key).WithError(err).Warn("Dropped cache write")
	}
}
