package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
)

// Ticker is the periodic external trigger. Ticks that arrive while the loop
// is still handling the previous one are dropped.
type Ticker struct {
	cron *gocron.Scheduler
	c    chan struct{}
}

// NewTicker schedules a tick every period. The first tick fires on Start.
func NewTicker(period time.Duration) (*Ticker, error) {
	t := &Ticker{
		cron: gocron.NewScheduler(time.UTC),
		c:    make(chan struct{}, 1),
	}
	if _, err := t.cron.Every(period).Do(t.tick); err != nil {
		return nil, fmt.Errorf("schedule tick: %w", err)
	}
	return t, nil
}

func (t *Ticker) tick() {
	select {
	case t.c <- struct{}{}:
	default:
	}
}

// C delivers ticks.
func (t *Ticker) C() <-chan struct{} {
	return t.c
}

// Start begins ticking in the background.
func (t *Ticker) Start() {
	t.cron.StartAsync()
}

// Stop halts future ticks.
func (t *Ticker) Stop() {
	t.cron.Stop()
}
