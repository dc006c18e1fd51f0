package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/epi-age-comparison/internal/epidemic"
	"github.com/i474232898/epi-age-comparison/internal/logger"
)

// Intervals below MinInterval are replaced by DefaultInterval.
const (
	MinInterval     = time.Minute
	DefaultInterval = 6 * time.Hour
)

// Comparer computes and stores one comparison.
type Comparer interface {
	Compare(ctx context.Context, region string, start, end time.Time) (epidemic.Comparison, error)
}

// Window is the pair of dates compared on every run.
type Window struct {
	Start time.Time
	End   time.Time
}

// Scheduler periodically recomputes the comparison for configured regions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Comparer
	regions   []string
	window    Window
	interval  time.Duration
	timeout   time.Duration
	log       *logger.Logger
}

// New creates a new Scheduler.
func New(regions []string, window Window, interval time.Duration, service Comparer, log *logger.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		regions:   regions,
		window:    window,
		interval:  interval,
		timeout:   2 * time.Minute,
		log:       log,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.regions) == 0 {
		s.log.Info("scheduler: no regions configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval < MinInterval {
		s.log.Warn("scheduler: refresh interval below minimum; using default",
			"interval", s.interval, "min", MinInterval, "using", DefaultInterval)
		interval = DefaultInterval
	}

	_, err := s.scheduler.Every(interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce recomputes every configured region concurrently and waits for all
// of them. Failures are logged.
func (s *Scheduler) RunOnce() {
	s.log.Info("scheduler: running comparison refresh", "regions", len(s.regions))

	var wg sync.WaitGroup
	for _, region := range s.regions {
		region := region
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if _, err := s.service.Compare(ctx, region, s.window.Start, s.window.End); err != nil {
				s.log.Error("scheduler: comparison failed", "region", region, "error", err)
			}
		}()
	}
	wg.Wait()
	s.log.Info("scheduler: completed comparison refresh")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
