package config

import "time"

// Database connection pool settings
const (
	DBMaxIdleConns    = 5
	DBConnMaxIdleTime = 2 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Subscription lifecycle
const (
	VerificationTTL      = 300 * time.Second
	SubscriptionLifetime = 365 * 24 * time.Hour
	UnbindRequestWindow  = 24 * time.Hour
	DefaultAlarmNum      = 20
)

// Query server limits
const (
	MaxFirstScreenCount = 100
	DefaultDataNum      = 5
	MaxDataNum          = 1000
)

// Mirror job paging
const DefaultMirrorPageSize = 100

// IP rate limit window
const IPRateLimitWindow = time.Minute

// Daily send counters are kept a few days past their date.
const DailyQuotaRetention = 72 * time.Hour
