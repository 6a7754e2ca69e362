// Package jobs holds the periodic alert checker and portal monitor.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/mail"
)

// Mailer queues one email and waits for the outcome.
type Mailer interface {
	Dispatch(ctx context.Context, kind string, msg mail.Message) error
}

// ticker runs round immediately, then every interval until done is closed.
type ticker struct {
	name     string
	interval time.Duration
	round    func(ctx context.Context)
	done     chan struct{}
	finished chan struct{}
}

func newTicker(name string, interval time.Duration, round func(ctx context.Context)) *ticker {
	return &ticker{
		name:     name,
		interval: interval,
		round:    round,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (t *ticker) start() {
	go t.run()
	log.Info().Dur("interval", t.interval).Msgf("%s started", t.name)
}

// stop waits for the running round to return.
func (t *ticker) stop() {
	close(t.done)
	<-t.finished
	log.Info().Msgf("%s stopped", t.name)
}

func (t *ticker) run() {
	defer close(t.finished)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-t.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	tick := time.NewTicker(t.interval)
	defer tick.Stop()

	t.round(ctx)

	for {
		select {
		case <-t.done:
			return
		case <-tick.C:
			t.round(ctx)
		}
	}
}
