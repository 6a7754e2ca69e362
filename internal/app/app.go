// Package app holds the process wiring shared by the commands.
package app

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/config"
	"github.com/meterwatch/alert-server-go/internal/database"
	"github.com/meterwatch/alert-server-go/internal/middleware"
	"github.com/meterwatch/alert-server-go/internal/quota"
	"github.com/meterwatch/alert-server-go/internal/redis"
	"github.com/meterwatch/alert-server-go/internal/service"
)

// SetupLogging switches the global logger to console output.
func SetupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func SetLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// OpenDatabase connects the pool and pings it once.
func OpenDatabase(cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("driver", cfg.Driver).Int("pool_size", cfg.PoolSize).Msg("database connected")
	return db, nil
}

// Backends holds the rate limiter and the counter store of the daily quota.
// Both live in Redis when a URL is configured, in process memory otherwise.
type Backends struct {
	Limiter middleware.Limiter
	Counter quota.Counter
	redis   *redis.Client
}

func NewBackends(ctx context.Context, redisURL string) (*Backends, error) {
	if redisURL == "" {
		return &Backends{
			Limiter: middleware.NewRateLimiter(),
			Counter: quota.NewMemoryCounter(),
		}, nil
	}

	client, err := redis.NewClient(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("redis connected")

	return &Backends{
		Limiter: service.NewRateLimiter(client.Client),
		Counter: quota.NewRedisCounter(client.Client),
		redis:   client,
	}, nil
}

func (b *Backends) Close() {
	if b.redis != nil {
		b.redis.Close()
	}
}

// NewRouter returns a router with the common middleware stack, /health and /metrics.
func NewRouter(extra ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	for _, mw := range extra {
		r.Use(mw)
	}

	r.Get("/health", health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	})
}

// Serve runs the server until SIGINT or SIGTERM, then shuts it down gracefully.
func Serve(addr string, handler http.Handler) {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	WaitForSignal()
	log.Info().Msg("shutting down server")

	shutdown(server)
	log.Info().Msg("server stopped")
}

// StartMetrics serves /metrics and /health on addr for the daemons.
// It returns nil when addr is empty.
func StartMetrics(addr string) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", health)
	server := &http.Server{Addr: addr, Handler: mux, ReadTimeout: config.ServerReadTimeout}

	go func() {
		log.Info().Str("addr", addr).Msg("starting metrics server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	return server
}

// StopMetrics shuts down a server returned by StartMetrics.
func StopMetrics(server *http.Server) {
	if server != nil {
		shutdown(server)
	}
}

func shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
}

func WaitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	signal.Stop(quit)
}
