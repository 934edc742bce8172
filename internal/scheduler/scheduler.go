package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"nadlan/server/config"
	"nadlan/server/internal/models"
)

// JobType represents the maintenance jobs run against the search cache
type JobType int

const (
	JobTypePurge JobType = iota
	JobTypeWarm
)

// String returns the string representation of a JobType
func (j JobType) String() string {
	switch j {
	case JobTypePurge:
		return "purge"
	case JobTypeWarm:
		return "warm"
	default:
		return "unknown"
	}
}

// Purger is a store that drops expired entries on demand. Stores with
// native expiry do not implement it.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Warmer re-runs a search and stores its result
type Warmer interface {
	Refresh(ctx context.Context, criteria models.SearchCriteria) error
}

// Scheduler manages periodic cache maintenance
type Scheduler struct {
	purger        Purger
	warmer        Warmer
	logger        *logrus.Logger
	cities        []string
	purgeInterval time.Duration
	warmInterval  time.Duration
	jobMutex      sync.Mutex // Ensures sequential job execution
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
	stopOnce      sync.Once
}

// NewScheduler creates a new scheduler. A nil purger or warmer disables the
// corresponding job, as does a zero interval.
func NewScheduler(purger Purger, warmer Warmer, cfg *config.Config, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		purger:        purger,
		warmer:        warmer,
		logger:        logger,
		cities:        cfg.Scheduler.WarmCities,
		purgeInterval: cfg.Scheduler.PurgeInterval,
		warmInterval:  cfg.Scheduler.WarmInterval,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start begins the scheduled tasks
func (s *Scheduler) Start() {
	if s.purger != nil && s.purgeInterval > 0 {
		s.wg.Add(1)
		go s.runEvery(JobTypePurge, s.purgeInterval, false)
	}
	if s.warmer != nil && s.warmInterval > 0 && len(s.cities) > 0 {
		s.wg.Add(1)
		go s.runEvery(JobTypeWarm, s.warmInterval, true)
	}
}

// runEvery runs a job on every tick until the scheduler stops
func (s *Scheduler) runEvery(job JobType, interval time.Duration, atStartup bool) {
	defer s.wg.Done()

	if atStartup {
		s.logger.WithField("job_type", job.String()).Info("Running startup job")
		s.run(job)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.run(job)
		}
	}
}

// run executes a single job while holding the job lock
func (s *Scheduler) run(job JobType) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	switch job {
	case JobTypePurge:
		s.runPurge()
	case JobTypeWarm:
		s.runWarm()
	}
}

func (s *Scheduler) runPurge() {
	purged, err := s.purger.PurgeExpired(s.ctx)
	if err != nil {
		s.logger.WithError(err).WithField("job_type", JobTypePurge.String()).Error("Cache job failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"job_type": JobTypePurge.String(),
		"purged":   purged,
	}).Debug("Cache job completed")
}

// runWarm refreshes the cached search of every configured city sequentially
func (s *Scheduler) runWarm() {
	for _, city := range s.cities {
		if s.ctx.Err() != nil {
			return
		}

		fields := logrus.Fields{
			"city":            city,
			"normalized_city": config.NormalizeCity(city),
			"job_type":        JobTypeWarm.String(),
		}
		criteria := models.SearchCriteria{Cities: []string{city}}
		if err := s.warmer.Refresh(s.ctx, criteria); err != nil {
			s.logger.WithError(err).WithFields(fields).Error("Cache job failed")
			continue
		}
		s.logger.WithFields(fields).Info("Cache job completed successfully")
	}
}

// Stop gracefully stops the scheduler, interrupting a running job
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}
