package main

import (
	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/app"
	"github.com/meterwatch/alert-server-go/internal/config"
	"github.com/meterwatch/alert-server-go/internal/jobs"
	"github.com/meterwatch/alert-server-go/internal/mail"
	"github.com/meterwatch/alert-server-go/internal/portal"
)

func main() {
	app.SetupLogging()

	cfg, err := config.Load[config.MonitorConfig]()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	app.SetLogLevel(cfg.LogLevel)

	// One recipient, so no daily quota and a single worker.
	dispatcher := mail.NewDispatcher(mail.NewAoksendClient(cfg.Aoksend), nil, 1, cfg.Aoksend.Timeout()*2)
	dispatcher.Start()
	defer dispatcher.Stop()

	monitorJob := jobs.NewMonitorJob(portal.NewClient(cfg.Portal), dispatcher, cfg)

	metricsServer := app.StartMetrics(cfg.MetricsAddr)
	defer app.StopMetrics(metricsServer)

	monitorJob.Start()
	app.WaitForSignal()
	log.Info().Msg("shutting down portal monitor")
	monitorJob.Stop()
}
