package main

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/app"
	"github.com/meterwatch/alert-server-go/internal/config"
	"github.com/meterwatch/alert-server-go/internal/handler"
	"github.com/meterwatch/alert-server-go/internal/mail"
	"github.com/meterwatch/alert-server-go/internal/middleware"
	"github.com/meterwatch/alert-server-go/internal/quota"
	"github.com/meterwatch/alert-server-go/internal/repository"
	"github.com/meterwatch/alert-server-go/internal/service"
)

func main() {
	app.SetupLogging()

	cfg, err := config.Load[config.SubscriptionConfig]()
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

	conn := db.Conn()
	subscriptionRepo := repository.NewSubscriptionRepository(conn)
	deviceRepo := repository.NewDeviceRepository(conn)
	readingRepo := repository.NewReadingRepository(conn)

	aoksend := mail.NewAoksendClient(cfg.Aoksend)
	dailyQuota := quota.NewDailyQuota(backends.Counter, cfg.Mail.DailyLimit, config.DailyQuotaRetention)
	dispatcher := mail.NewDispatcher(aoksend, dailyQuota, cfg.Mail.Workers, cfg.Mail.Timeout())
	dispatcher.Start()
	defer dispatcher.Stop()

	subscriptionService := service.NewSubscriptionService(
		subscriptionRepo, deviceRepo, readingRepo, dispatcher, cfg.Aoksend, cfg.EmailLimit,
	)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService)

	corsMiddleware := middleware.NewCORSMiddleware([]string{"POST", "OPTIONS"}, []string{"Content-Type"})
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	ipRateLimitMiddleware := middleware.NewIPRateLimitMiddleware(
		backends.Limiter, cfg.IPRateLimitPerMin, config.IPRateLimitWindow, "subscription",
	)

	r := app.NewRouter(corsMiddleware.Handler)
	r.NotFound(handler.NotFound)

	r.Group(func(r chi.Router) {
		r.Use(bodyLimitMiddleware.Handler)
		r.Use(ipRateLimitMiddleware.Handler)
		r.Mount("/", subscriptionHandler.Routes())
	})

	app.Serve(cfg.Addr(), r)
}
