package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/app"
	"github.com/meterwatch/alert-server-go/internal/config"
	"github.com/meterwatch/alert-server-go/internal/jobs"
	"github.com/meterwatch/alert-server-go/internal/mail"
	"github.com/meterwatch/alert-server-go/internal/quota"
	"github.com/meterwatch/alert-server-go/internal/repository"
)

func main() {
	app.SetupLogging()

	cfg, err := config.Load[config.CheckerConfig]()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	app.SetLogLevel(cfg.LogLevel)

	db, err := app.OpenDatabase(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	backends, err := app.NewBackends(context.Background(), cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer backends.Close()

	dailyQuota := quota.NewDailyQuota(backends.Counter, cfg.Mail.DailyLimit, config.DailyQuotaRetention)
	dispatcher := mail.NewDispatcher(mail.NewAoksendClient(cfg.Aoksend), dailyQuota, cfg.Mail.Workers, cfg.Mail.Timeout())
	dispatcher.Start()
	defer dispatcher.Stop()

	conn := db.Conn()
	alertJob := jobs.NewAlertJob(
		repository.NewSubscriptionRepository(conn),
		repository.NewReadingRepository(conn),
		dispatcher,
		cfg.Aoksend,
		cfg.CheckRound(),
		cfg.CheckConcurrency,
	)

	metricsServer := app.StartMetrics(cfg.MetricsAddr)
	defer app.StopMetrics(metricsServer)

	alertJob.Start()
	app.WaitForSignal()
	log.Info().Msg("shutting down alert checker")
	alertJob.Stop()
}
