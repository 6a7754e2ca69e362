package main

import (
	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/app"
	"github.com/meterwatch/alert-server-go/internal/config"
	"github.com/meterwatch/alert-server-go/internal/handler"
	"github.com/meterwatch/alert-server-go/internal/mail"
	"github.com/meterwatch/alert-server-go/internal/middleware"
	"github.com/meterwatch/alert-server-go/internal/repository"
	"github.com/meterwatch/alert-server-go/internal/service"
)

func main() {
	app.SetupLogging()

	cfg, err := config.Load[config.QueryConfig]()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	app.SetLogLevel(cfg.LogLevel)

	db, err := app.OpenDatabase(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	conn := db.Conn()
	queryService := service.NewQueryService(
		repository.NewDeviceRepository(conn),
		repository.NewReadingRepository(conn),
		cfg.FirstScreenCount,
	)

	queryHandler := handler.NewQueryHandler(queryService)
	balanceHandler := handler.NewBalanceHandler(mail.NewAoksendClient(cfg.Aoksend))

	corsMiddleware := middleware.NewCORSMiddleware([]string{"GET", "OPTIONS"}, []string{"Content-Type"})

	r := app.NewRouter(corsMiddleware.Handler)
	r.NotFound(handler.NotFound)

	r.Mount("/balance", balanceHandler.Routes())
	r.Mount("/", queryHandler.Routes())

	app.Serve(cfg.Addr(), r)
}
