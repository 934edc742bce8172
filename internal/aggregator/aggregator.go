package aggregator

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"nadlan/server/config"
	"nadlan/server/internal/filter"
	"nadlan/server/internal/metrics"
	"nadlan/server/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultMinInterval is the minimum spacing between two searches
const DefaultMinInterval = 300 * time.Millisecond

// Fetcher is one external transaction source. Fetch must not fail: a
// source with problems returns an empty slice.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, criteria models.SearchCriteria) []models.Transaction
}

// Generator produces fallback transactions when every source came back empty
type Generator interface {
	Generate(criteria models.SearchCriteria, rng *rand.Rand) []models.Transaction
}

// Clock is the time source of the rate gate
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SearchResult is the outcome of one aggregated search
type SearchResult struct {
	Transactions []models.Transaction `json:"transactions"`

	// Synthetic is set when the transactions were generated because no
	// source returned data
	Synthetic bool `json:"synthetic"`

	// Records contributed by each source before deduplication
	SourceCounts map[string]int `json:"source_counts"`
}

// Options configure an Aggregator. Zero values select defaults.
type Options struct {
	MinInterval time.Duration

	// Seed fixes the fallback random source, 0 draws a fresh seed per search
	Seed int64

	Clock   Clock
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

// Aggregator fans a search out to all sources, merges and deduplicates the
// results, filters them and falls back to synthesized data when nothing came
// back
type Aggregator struct {
	fetchers  []Fetcher
	generator Generator
	filter    *filter.Engine
	limiter   *rate.Limiter
	clock     Clock
	seed      int64
	logger    *logrus.Logger
	metrics   *metrics.Metrics

	seedMu sync.Mutex
	seeds  *rand.Rand
}

// New creates an aggregator over fetchers
func New(fetchers []Fetcher, generator Generator, filterEngine *filter.Engine, opts Options) *Aggregator {
	if opts.MinInterval < 0 {
		opts.MinInterval = 0
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &Aggregator{
		fetchers:  fetchers,
		generator: generator,
		filter:    filterEngine,
		limiter:   rate.NewLimiter(limit, 1),
		clock:     opts.Clock,
		seed:      opts.Seed,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		seeds:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Search runs the aggregation pipeline for criteria. The only error is a
// context cancelled while waiting on the rate gate.
func (a *Aggregator) Search(ctx context.Context, criteria models.SearchCriteria) (SearchResult, error) {
	if err := a.wait(ctx); err != nil {
		return SearchResult{}, fmt.Errorf("failed to pass rate gate: %w", err)
	}
	started := time.Now()

	batches := a.fetchAll(ctx, criteria)

	counts := make(map[string]int, len(a.fetchers))
	total := 0
	for i, batch := range batches {
		counts[a.fetchers[i].Name()] = len(batch)
		total += len(batch)
	}

	if total == 0 {
		a.logger.WithFields(logrus.Fields{
			"cities":    criteria.Cities,
			"districts": criteria.Districts,
		}).Info("No source returned data, synthesizing fallback transactions")

		synthetic := a.generator.Generate(criteria, a.newRand())
		a.metrics.ObserveSearch(true, time.Since(started))
		return SearchResult{Transactions: synthetic, Synthetic: true, SourceCounts: counts}, nil
	}

	merged := make([]models.Transaction, 0, total)
	for _, batch := range batches {
		merged = append(merged, batch...)
	}

	unique := Deduplicate(merged)
	filtered := a.filter.Apply(unique, criteria)
	if criteria.HasGeoRadius() {
		filtered = filter.ByRadius(filtered, *criteria.CenterLat, *criteria.CenterLng, *criteria.RadiusKm)
	}
	if criteria.Limit != nil {
		filtered = filter.Paginate(filtered, criteria.Offset, criteria.Limit)
	}

	a.logger.WithFields(logrus.Fields{
		"sources":  counts,
		"merged":   total,
		"unique":   len(unique),
		"returned": len(filtered),
		"duration": time.Since(started).String(),
	}).Debug("Search completed")
	a.metrics.ObserveSearch(false, time.Since(started))

	return SearchResult{Transactions: filtered, SourceCounts: counts}, nil
}

// wait blocks until the minimum interval since the previous search elapsed
func (a *Aggregator) wait(ctx context.Context) error {
	now := a.clock.Now()
	reservation := a.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	a.logger.WithField("delay", delay.String()).Debug("Throttling search")
	if err := a.clock.Sleep(ctx, delay); err != nil {
		reservation.CancelAt(a.clock.Now())
		return err
	}
	return nil
}

// fetchAll queries every source concurrently and waits for all of them.
// Batches keep the fetcher order regardless of completion order.
func (a *Aggregator) fetchAll(ctx context.Context, criteria models.SearchCriteria) [][]models.Transaction {
	batches := make([][]models.Transaction, len(a.fetchers))

	var wg sync.WaitGroup
	for i, fetcher := range a.fetchers {
		wg.Add(1)
		go func(i int, fetcher Fetcher) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.logger.WithFields(logrus.Fields{
						"source": fetcher.Name(),
						"panic":  r,
					}).Error("Source fetch panicked")
					batches[i] = nil
				}
			}()
			batches[i] = fetcher.Fetch(ctx, criteria)
		}(i, fetcher)
	}
	wg.Wait()

	return batches
}

func (a *Aggregator) newRand() *rand.Rand {
	if a.seed != 0 {
		return rand.New(rand.NewSource(a.seed))
	}
	a.seedMu.Lock()
	defer a.seedMu.Unlock()
	return rand.New(rand.NewSource(a.seeds.Int63()))
}

// Deduplicate drops transactions sharing city, street, deal day and amount
// with an earlier one
func Deduplicate(transactions []models.Transaction) []models.Transaction {
	seen := make(map[string]struct{}, len(transactions))
	unique := make([]models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		key := dedupKey(tx)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, tx)
	}
	return unique
}

func dedupKey(tx models.Transaction) string {
	return strings.Join([]string{
		config.NormalizeCity(tx.City),
		strings.ToLower(strings.Join(strings.Fields(tx.Street), " ")),
		tx.DealDate.UTC().Format("2006-01-02"),
		strconv.FormatFloat(tx.DealAmount, 'f', 2, 64),
	}, "|")
}
