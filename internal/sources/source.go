// Package sources holds the adapters for the external transaction sources.
//
// Every adapter issues a single HTTP call per fetch, maps the source's wire
// shape into models.Transaction and never reports failure to the caller: a
// source that is down, slow or returns garbage contributes zero records and
// a warning in the log.
package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"nadlan/server/config"
	"nadlan/server/internal/metrics"
	"nadlan/server/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrPriceMismatch    = errors.New("price per sqm does not match amount and area")
)

// Largest response body read from a source
const maxResponseBytes = 32 << 20

// DefaultTimeout bounds a single source call
const DefaultTimeout = 30 * time.Second

// Options are shared by all adapters
type Options struct {
	URL      string
	Timeout  time.Duration
	PageSize int
	Client   *http.Client
	Cities   *config.CityDirectory
	Logger   *logrus.Logger
	Metrics  *metrics.Metrics
}

// base carries the HTTP plumbing common to the adapters
type base struct {
	name     models.Source
	url      string
	timeout  time.Duration
	pageSize int
	client   *http.Client
	cities   *config.CityDirectory
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
}

func newBase(name models.Source, opts Options) base {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 500
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Cities == nil {
		opts.Cities = config.DefaultCityDirectory()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return base{
		name:     name,
		url:      opts.URL,
		timeout:  opts.Timeout,
		pageSize: opts.PageSize,
		client:   opts.Client,
		cities:   opts.Cities,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		validate: validator.New(),
	}
}

// Name identifies the adapter in logs and metrics
func (b *base) Name() string {
	return string(b.name)
}

// do performs one request bounded by the adapter timeout and returns the
// body of a 2xx response
func (b *base) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// fail logs a failed fetch and returns the empty result
func (b *base) fail(err error, started time.Time) []models.Transaction {
	b.logger.WithFields(logrus.Fields{
		"source":   b.name,
		"duration": time.Since(started).String(),
	}).WithError(err).Warn("Source fetch failed")
	b.metrics.ObserveFetch(b.Name(), metrics.OutcomeError, 0, time.Since(started))
	return []models.Transaction{}
}

// succeed logs and records a completed fetch
func (b *base) succeed(transactions []models.Transaction, started time.Time) []models.Transaction {
	outcome := metrics.OutcomeSuccess
	if len(transactions) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	b.logger.WithFields(logrus.Fields{
		"source":   b.name,
		"records":  len(transactions),
		"duration": time.Since(started).String(),
	}).Debug("Source fetch completed")
	b.metrics.ObserveFetch(b.Name(), outcome, len(transactions), time.Since(started))
	return transactions
}

// check validates a normalized record and fills in a missing price per sqm
func (b *base) check(tx models.Transaction) (models.Transaction, error) {
	if tx.PricePerSqm == 0 && tx.Area > 0 {
		tx.PricePerSqm = tx.DealAmount / tx.Area
	}
	if err := b.validate.Struct(tx); err != nil {
		return tx, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if !tx.PriceConsistent() {
		return tx, ErrPriceMismatch
	}
	return tx, nil
}

// normalizeAll maps raw records through normalize, dropping the ones that
// fail normalization or validation
func normalizeAll[T any](b *base, raws []T, normalize func(T) (models.Transaction, error)) []models.Transaction {
	transactions := make([]models.Transaction, 0, len(raws))
	dropped := 0
	for i, raw := range raws {
		tx, err := normalize(raw)
		if err == nil {
			tx, err = b.check(tx)
		}
		if err != nil {
			dropped++
			b.logger.WithFields(logrus.Fields{
				"source": b.name,
				"index":  i,
				"deal":   tx.DealID,
			}).WithError(err).Warn("Dropping malformed record")
			continue
		}
		transactions = append(transactions, tx)
	}
	b.metrics.ObserveDropped(b.Name(), dropped)
	return transactions
}

// resolveCity maps a source city name onto the directory. Names the
// directory does not know are kept verbatim without a district.
func (b *base) resolveCity(name string) (string, string) {
	if city, ok := b.cities.Resolve(name); ok {
		return city.Name, city.District
	}
	return name, ""
}

// firstCity picks the single city to send to sources that accept one
func firstCity(criteria models.SearchCriteria) string {
	if len(criteria.Cities) == 0 {
		return ""
	}
	return criteria.Cities[0]
}
