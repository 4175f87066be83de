package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper drops state that is past its expiry and reports how much went.
type Sweeper interface {
	Sweep(now time.Time) int
}

type Scheduler struct {
	cron     *cron.Cron
	sweepers map[string]Sweeper
	log      zerolog.Logger
	now      func() time.Time
}

func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		sweepers: make(map[string]Sweeper),
		log:      log,
		now:      time.Now,
	}
}

// AddSweeper registers state to be swept once a minute. Call before Start.
func (s *Scheduler) AddSweeper(name string, sweeper Sweeper) {
	s.sweepers[name] = sweeper
}

func (s *Scheduler) Start() error {
	if len(s.sweepers) == 0 {
		return nil
	}

	if _, err := s.cron.AddFunc("0 * * * * *", s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) sweep() {
	now := s.now()
	for name, sweeper := range s.sweepers {
		removed := sweeper.Sweep(now)
		if removed > 0 {
			s.log.Debug().Str("sweeper", name).Int("removed", removed).Msg("expired entries swept")
		}
	}
}
