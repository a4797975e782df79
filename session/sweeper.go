package session

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
)

// Pruner drops per-user state that has been idle for maxIdle.
type Pruner interface {
	Prune(maxIdle time.Duration) int
}

// Sweeper evicts idle workspaces, and the state of any added pruners, on a
// schedule.
type Sweeper struct {
	scheduler *gocron.Scheduler
	registry  *Registry
	maxIdle   time.Duration
	logger    *slog.Logger
	pruners   map[string]Pruner
}

// NewSweeper creates a sweeper for registry.
func NewSweeper(registry *Registry, maxIdle time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		scheduler: gocron.NewScheduler(time.UTC),
		registry:  registry,
		maxIdle:   maxIdle,
		logger:    logger,
		pruners:   make(map[string]Pruner),
	}
}

// Add registers p to be pruned on every sweep. It must be called before Start.
func (s *Sweeper) Add(name string, p Pruner) {
	s.pruners[name] = p
}

// Start runs a sweep every interval without blocking.
func (s *Sweeper) Start(interval time.Duration) error {
	if _, err := s.scheduler.Every(interval).WaitForSchedule().Do(s.sweep); err != nil {
		return errors.Wrap(err, "failed to schedule session sweep")
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates the schedule.
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

func (s *Sweeper) sweep() {
	if n := s.registry.Sweep(s.maxIdle); n > 0 {
		s.logger.Debug("swept idle study sessions", "count", n, "remaining", s.registry.Len())
	}
	for name, p := range s.pruners {
		if n := p.Prune(s.maxIdle); n > 0 {
			s.logger.Debug("pruned idle state", "name", name, "count", n)
		}
	}
}
