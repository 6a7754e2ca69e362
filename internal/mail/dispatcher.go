package mail

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/metrics"
	"github.com/meterwatch/alert-server-go/internal/quota"
	"github.com/meterwatch/alert-server-go/internal/util"
)

// Email kinds, used as metric labels and in logs.
const (
	KindVerify    = "verify"
	KindUnbind    = "unbind"
	KindCelebrate = "celebrate"
	KindAlert     = "alert"
	KindMonitor   = "monitor"
)

var (
	ErrQuotaExceeded    = errors.New("daily email quota exceeded")
	ErrDispatchTimeout  = errors.New("email dispatch timed out")
	ErrDispatcherClosed = errors.New("email dispatcher is stopped")
)

type job struct {
	ctx    context.Context
	kind   string
	msg    Message
	result chan error
}

// Dispatcher sends emails on a fixed pool of workers. Callers block until
// their message is sent, fails, or the dispatch timeout passes.
type Dispatcher struct {
	sender  Sender
	quota   *quota.DailyQuota
	workers int
	timeout time.Duration

	jobs      chan job
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewDispatcher creates a dispatcher. A nil quota disables the daily cap.
func NewDispatcher(sender Sender, q *quota.DailyQuota, workers int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		sender:  sender,
		quota:   q,
		workers: workers,
		timeout: timeout,
		jobs:    make(chan job, workers*4),
		done:    make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.work()
		}
		log.Info().Int("workers", d.workers).Msg("mail dispatcher started")
	})
}

// Stop lets in-flight sends finish and drops queued ones.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
		d.wg.Wait()
		log.Info().Msg("mail dispatcher stopped")
	})
}

// Dispatch queues msg and waits for the send result.
func (d *Dispatcher) Dispatch(ctx context.Context, kind string, msg Message) error {
	select {
	case <-d.done:
		return ErrDispatcherClosed
	default:
	}

	if d.quota != nil {
		ok, sent, err := d.quota.Allow(ctx, msg.To)
		if err != nil {
			log.Warn().Err(err).Str("kind", kind).Msg("daily quota lookup failed, sending anyway")
		} else if !ok {
			log.Warn().
				Str("kind", kind).
				Str("to", util.MaskEmail(msg.To)).
				Int("sent_today", sent).
				Msg("daily email quota reached")
			metrics.RecordMailDispatch(kind, "quota", 0)
			return ErrQuotaExceeded
		}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	j := job{ctx: ctx, kind: kind, msg: msg, result: make(chan error, 1)}

	select {
	case d.jobs <- j:
	case <-d.done:
		return ErrDispatcherClosed
	case <-ctx.Done():
		metrics.RecordMailDispatch(kind, "timeout", 0)
		return ErrDispatchTimeout
	}

	select {
	case err := <-j.result:
		return err
	case <-d.done:
		return ErrDispatcherClosed
	case <-ctx.Done():
		metrics.RecordMailDispatch(kind, "timeout", 0)
		return ErrDispatchTimeout
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case j := <-d.jobs:
			j.result <- d.send(j)
		}
	}
}

func (d *Dispatcher) send(j job) error {
	if j.ctx.Err() != nil {
		return ErrDispatchTimeout
	}

	start := time.Now()
	err := d.sender.Send(j.ctx, j.msg)
	elapsed := time.Since(start)

	if err != nil && j.ctx.Err() != nil {
		metrics.RecordMailDispatch(j.kind, "timeout", elapsed)
		return ErrDispatchTimeout
	}
	if err != nil {
		metrics.RecordMailDispatch(j.kind, "failed", elapsed)
		log.Error().Err(err).
			Str("kind", j.kind).
			Str("to", util.MaskEmail(j.msg.To)).
			Msg("failed to send email")
		return err
	}

	metrics.RecordMailDispatch(j.kind, "sent", elapsed)
	if d.quota != nil {
		if err := d.quota.Record(context.WithoutCancel(j.ctx), j.msg.To); err != nil {
			log.Warn().Err(err).Msg("failed to record daily email quota")
		}
	}
	log.Info().
		Str("kind", j.kind).
		Str("to", util.MaskEmail(j.msg.To)).
		Dur("elapsed", elapsed).
		Msg("email sent")
	return nil
}
