package maintenance

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Resetter clears accumulated state: uploaded files and the search index.
type Resetter interface {
	Reset() error
}

// DefaultSchedule wipes uploads every hour.
const DefaultSchedule = "@every 1h"

// Janitor periodically resets the document store on a cron schedule.
type Janitor struct {
	cron   *cron.Cron
	target Resetter
	logger *slog.Logger
}

// NewJanitor schedules target.Reset on the given cron spec. An empty spec
// uses DefaultSchedule.
func NewJanitor(target Resetter, schedule string, logger *slog.Logger) (*Janitor, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	j := &Janitor{
		cron:   cron.New(),
		target: target,
		logger: logger,
	}
	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	return j, nil
}

func (j *Janitor) sweep() {
	j.logger.Info("scheduled reset starting")
	if err := j.target.Reset(); err != nil {
		j.logger.Error("scheduled reset failed", "error", err)
		return
	}
	j.logger.Info("scheduled reset complete")
}

// Start begins running sweeps in the background.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}
