package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/meterwatch/alert-server-go/internal/config"
	"github.com/meterwatch/alert-server-go/internal/mail"
	"github.com/meterwatch/alert-server-go/internal/metrics"
	"github.com/meterwatch/alert-server-go/internal/model"
	"github.com/meterwatch/alert-server-go/internal/repository"
	"github.com/meterwatch/alert-server-go/internal/util"
)

// AlertJob emails subscribers whose device balance fell below their alarm value.
type AlertJob struct {
	subs        repository.SubscriptionRepository
	readings    repository.ReadingRepository
	mailer      Mailer
	templateID  string
	fields      config.NoticeFields
	concurrency int
	now         func() time.Time
	ticker      *ticker
}

func NewAlertJob(
	subs repository.SubscriptionRepository,
	readings repository.ReadingRepository,
	mailer Mailer,
	aoksend config.AoksendConfig,
	interval time.Duration,
	concurrency int,
) *AlertJob {
	if concurrency <= 0 {
		concurrency = 1
	}
	j := &AlertJob{
		subs:        subs,
		readings:    readings,
		mailer:      mailer,
		templateID:  aoksend.CheckerTemplateID,
		fields:      aoksend.CheckerFields,
		concurrency: concurrency,
		now:         time.Now,
	}
	j.ticker = newTicker("alert checker", interval, func(ctx context.Context) {
		j.RunOnce(ctx)
	})
	return j
}

func (j *AlertJob) Start() {
	j.ticker.start()
}

func (j *AlertJob) Stop() {
	j.ticker.stop()
}

// RunOnce checks every active subscription and returns the number of alerts sent.
// A failing subscription is logged and does not stop the round.
func (j *AlertJob) RunOnce(ctx context.Context) int {
	subs, err := j.subs.ListActive(ctx, j.now())
	if err != nil {
		log.Error().Err(err).Msg("failed to list active subscriptions")
		return 0
	}
	log.Info().Int("subscriptions", len(subs)).Msg("alert round started")

	var sent atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			if j.check(gctx, sub) {
				sent.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	log.Info().Int64("sent", sent.Load()).Msg("alert round finished")
	return int(sent.Load())
}

func (j *AlertJob) check(ctx context.Context, sub model.ActiveSubscription) bool {
	logger := log.With().
		Str("device_id", sub.DeviceID).
		Str("email", util.MaskEmail(sub.Email)).
		Logger()

	reading, err := j.readings.Latest(ctx, sub.DeviceID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load latest reading")
		return false
	}
	if reading == nil {
		logger.Warn().Msg("device has no readings")
		return false
	}

	// A missing balance counts as empty.
	balance := 0.0
	if reading.RemainingBalance != nil {
		balance = *reading.RemainingBalance
	}
	if balance >= sub.AlarmNum {
		logger.Debug().Float64("balance", balance).Float64("alarm_num", sub.AlarmNum).Msg("balance above alarm value")
		return false
	}

	name := mail.UnknownDevice
	if sub.EquipmentName != nil && *sub.EquipmentName != "" {
		name = *sub.EquipmentName
	}

	err = j.mailer.Dispatch(ctx, mail.KindAlert, mail.Message{
		To:         sub.Email,
		TemplateID: j.templateID,
		Data:       mail.NoticeData(j.fields, mail.AlertTitle, name, reading),
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to send alert email")
		return false
	}

	metrics.RecordAlertSent("checker")
	logger.Info().Float64("balance", balance).Float64("alarm_num", sub.AlarmNum).Msg("alert email sent")
	return true
}
