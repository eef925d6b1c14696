package etl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Scheduler periodically runs the Normalizer over the most recent window
// for every registered source table, the same background-sweep Start/Stop
// shape as embedding.Reaper (both adapted from the teacher's queue.Worker
// polling loop, with ent-backed session polling replaced by a fixed
// window-advance tick).
type Scheduler struct {
	nz       *Normalizer
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler builds a Scheduler driving nz every interval.
func NewScheduler(nz *Normalizer, interval time.Duration) *Scheduler {
	return &Scheduler{nz: nz, interval: interval}
}

// Start launches the background tick loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)
	slog.Info("etl scheduler started", "interval", s.interval, "tables", len(Registry))
}

// Stop signals the tick loop to exit and waits for it to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("etl scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs every registered source table over the window ending now and
// starting one interval ago. A failing table never blocks the others; all
// failures are collected into one multierror so a single log line at the
// end of the tick reports the full picture instead of scattering it across
// per-table log lines only.
func (s *Scheduler) tick(ctx context.Context) {
	end := time.Now().UTC().Truncate(time.Second)
	start := end.Add(-s.interval)

	var errs *multierror.Error
	for _, mapping := range Registry {
		result, err := s.nz.RunWindow(ctx, mapping.Table, start, end)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("table %s: %w", mapping.Table, err))
			continue
		}
		slog.Info("etl window completed", "table", mapping.Table, "rows_in", result.RowsIn, "rows_out", result.RowsOut, "dead_lettered", result.DeadLettered)
	}
	if errs.ErrorOrNil() != nil {
		slog.Error("etl tick completed with failures", "error", errs)
	}
}
