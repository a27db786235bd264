package thumbs

import (
	"context"
	"fmt"
	"time"

	"github.com/raindrop213/bibi-library/internal/logger"
)

// Janitor evicts the thumbnail cache on a schedule: every N days at a
// fixed wall-clock time.
type Janitor struct {
	cache        *Cache
	intervalDays int
	hour         int
	minute       int
	log          *logger.Logger
	stop         chan struct{}
	done         chan struct{}
}

// NewJanitor creates the janitor. CleanClock values come pre-validated
// from config.
func NewJanitor(cache *Cache, intervalDays, hour, minute int, log *logger.Logger) *Janitor {
	if intervalDays < 1 {
		intervalDays = 1
	}
	return &Janitor{
		cache:        cache,
		intervalDays: intervalDays,
		hour:         hour,
		minute:       minute,
		log:          log,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// nextRun computes the next eviction instant: the configured wall-clock
// time, intervalDays out, relative to now.
func (j *Janitor) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), j.hour, j.minute, 0, 0, now.Location())
	next = next.AddDate(0, 0, j.intervalDays)
	return next
}

// Start launches the eviction loop. It returns immediately.
func (j *Janitor) Start() {
	go j.run()
	j.log.Info("thumbnail janitor started",
		"interval_days", j.intervalDays,
		"clean_time", fmt.Sprintf("%02d:%02d", j.hour, j.minute))
}

func (j *Janitor) run() {
	defer close(j.done)

	timer := time.NewTimer(time.Until(j.nextRun(time.Now())))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			removed, err := j.cache.Purge()
			if err != nil {
				j.log.Error("scheduled thumbnail eviction failed", "error", err)
			} else {
				j.log.Info("scheduled thumbnail eviction", "removed", removed)
			}
			timer.Reset(time.Until(j.nextRun(time.Now())))
		case <-j.stop:
			return
		}
	}
}

// Stop halts the eviction loop and waits for it to exit.
func (j *Janitor) Stop(ctx context.Context) error {
	close(j.stop)
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
