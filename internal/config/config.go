package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type DatabaseConfig struct {
	Driver                 string `env:"DB_DRIVER" envDefault:"mysql"`
	DSN                    string `env:"DATABASE_DSN"`
	PoolSize               int    `env:"DB_POOL_SIZE" envDefault:"10"`
	ConnMaxLifetimeSeconds int    `env:"DB_CONN_MAX_LIFETIME_SECONDS" envDefault:"300"`
	QueryTimeoutSeconds    int    `env:"DB_QUERY_TIMEOUT_SECONDS" envDefault:"30"`
}

func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeSeconds) * time.Second
}

func (c DatabaseConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

func (c DatabaseConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}
	switch c.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be mysql or postgres, got %q", c.Driver)
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("DB_POOL_SIZE must be positive")
	}
	return nil
}

type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

// NoticeFields names the template variables of a device status notice.
type NoticeFields struct {
	Title      string `env:"TITLE_FIELD" envDefault:"title"`
	DeviceName string `env:"DEVICE_NAME_FIELD" envDefault:"acctName"`
	Balance    string `env:"BALANCE_FIELD" envDefault:"remainingBalance"`
	CheckTime  string `env:"CHECK_TIME_FIELD" envDefault:"currentDealDate"`
	Status     string `env:"STATUS_FIELD" envDefault:"equipmentStatus"`
	LatestRead string `env:"LATEST_READ_FIELD" envDefault:"equipmentLatestLarge"`
}

type AoksendConfig struct {
	APIURL              string `env:"AOKSEND_API_URL" envDefault:"https://www.aoksend.com/index/api/send_email"`
	BalanceURL          string `env:"AOKSEND_BALANCE_URL"`
	AppKey              string `env:"AOKSEND_APP_KEY"`
	ReplyTo             string `env:"AOKSEND_REPLY_TO"`
	Alias               string `env:"AOKSEND_ALIAS" envDefault:"新毛云"`
	TimeoutSeconds      int    `env:"AOKSEND_TIMEOUT_SECONDS" envDefault:"10"`
	VerifyTemplateID    string `env:"AOKSEND_VERIFY_TEMPLATE_ID"`
	ChangeTemplateID    string `env:"AOKSEND_CHANGE_TEMPLATE_ID"`
	CelebrateTemplateID string `env:"AOKSEND_CELEBRATE_TEMPLATE_ID"`
	CheckerTemplateID   string `env:"AOKSEND_CHECKER_TEMPLATE_ID"`
	VerifyCodeField     string `env:"AOKSEND_VERIFY_CODE_FIELD" envDefault:"code"`
	VerifyModeField     string `env:"AOKSEND_VERIFY_MODE_FIELD" envDefault:"email_mode"`
	ChangeCodeField     string `env:"AOKSEND_CHANGE_CODE_FIELD" envDefault:"code"`
	ChangeModeField     string `env:"AOKSEND_CHANGE_MODE_FIELD" envDefault:"email_mode"`

	CelebrateFields NoticeFields `envPrefix:"AOKSEND_CELEBRATE_"`
	CheckerFields   NoticeFields `envPrefix:"AOKSEND_CHECKER_"`
}

func (c AoksendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// UnbindTemplate falls back to the verification template when unset.
func (c AoksendConfig) UnbindTemplate() string {
	if c.ChangeTemplateID != "" {
		return c.ChangeTemplateID
	}
	return c.VerifyTemplateID
}

// CelebrateTemplate falls back to the verification template when unset.
func (c AoksendConfig) CelebrateTemplate() string {
	if c.CelebrateTemplateID != "" {
		return c.CelebrateTemplateID
	}
	return c.VerifyTemplateID
}

type PortalConfig struct {
	BaseURL        string `env:"PORTAL_BASE_URL" envDefault:"http://sywap.funsine.com/prod-api"`
	SignKey        string `env:"PORTAL_SIGN_KEY" envDefault:"DJKSBNW123"`
	ChannelID      string `env:"PORTAL_CHANNEL_ID" envDefault:"1003"`
	Phone          string `env:"PORTAL_PHONE"`
	Password       string `env:"PORTAL_PASSWORD"`
	TimeoutSeconds int    `env:"PORTAL_TIMEOUT_SECONDS" envDefault:"10"`
}

func (c PortalConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MailConfig controls the dispatch worker pool and daily send cap.
type MailConfig struct {
	Workers        int `env:"MAIL_WORKERS" envDefault:"10"`
	TimeoutSeconds int `env:"MAIL_TIMEOUT_SECONDS" envDefault:"30"`
	DailyLimit     int `env:"EMAIL_DAILY_LIMIT" envDefault:"100"`
}

func (c MailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type SubscriptionConfig struct {
	Port              int    `env:"PORT" envDefault:"8080"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	EmailLimit        int    `env:"EMAIL_LIMIT" envDefault:"25"`
	IPRateLimitPerMin int    `env:"IP_RATE_LIMIT_PER_MIN" envDefault:"30"`

	Database DatabaseConfig
	Redis    RedisConfig
	Aoksend  AoksendConfig
	Mail     MailConfig
}

func (c *SubscriptionConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *SubscriptionConfig) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.EmailLimit <= 0 {
		return fmt.Errorf("EMAIL_LIMIT must be positive")
	}
	if c.Mail.Workers <= 0 {
		return fmt.Errorf("MAIL_WORKERS must be positive")
	}
	if c.Aoksend.AppKey == "" || c.Aoksend.VerifyTemplateID == "" {
		log.Warn().Msg("AOKSEND_APP_KEY or AOKSEND_VERIFY_TEMPLATE_ID is empty: verification emails will fail")
	}
	if c.Redis.URL == "" {
		log.Warn().Msg("REDIS_URL is empty: rate limits and daily quotas are kept in process memory")
	}
	return nil
}

type QueryConfig struct {
	Port             int    `env:"PORT" envDefault:"8081"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	FirstScreenCount int    `env:"FIRST_SCREEN_COUNT" envDefault:"20"`

	Database DatabaseConfig
	Aoksend  AoksendConfig
}

func (c *QueryConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *QueryConfig) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.FirstScreenCount <= 0 {
		return fmt.Errorf("FIRST_SCREEN_COUNT must be positive")
	}
	return nil
}

type CheckerConfig struct {
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	MetricsAddr       string `env:"METRICS_ADDR"`
	CheckRoundSeconds int    `env:"CHECK_ROUND_SECONDS" envDefault:"3600"`
	CheckConcurrency  int    `env:"CHECK_CONCURRENCY" envDefault:"10"`

	Database DatabaseConfig
	Redis    RedisConfig
	Aoksend  AoksendConfig
	Mail     MailConfig
}

func (c *CheckerConfig) CheckRound() time.Duration {
	return time.Duration(c.CheckRoundSeconds) * time.Second
}

func (c *CheckerConfig) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.CheckRoundSeconds <= 0 {
		return fmt.Errorf("CHECK_ROUND_SECONDS must be positive")
	}
	if c.Aoksend.CheckerTemplateID == "" {
		return fmt.Errorf("AOKSEND_CHECKER_TEMPLATE_ID is required")
	}
	return nil
}

type MonitorConfig struct {
	LogLevel        string  `env:"LOG_LEVEL" envDefault:"info"`
	MetricsAddr     string  `env:"METRICS_ADDR"`
	IntervalSeconds int     `env:"MONITOR_INTERVAL_SECONDS" envDefault:"3600"`
	Field           string  `env:"MONITOR_FIELD" envDefault:"remainingBalance"`
	Threshold       float64 `env:"MONITOR_THRESHOLD" envDefault:"10"`
	EleKeyword      string  `env:"ELE_KEYWORD"`
	EleThreshold    float64 `env:"ELE_THRESHOLD"`
	WaterKeyword    string  `env:"WATER_KEYWORD"`
	WaterThreshold  float64 `env:"WATER_THRESHOLD"`
	Recipient       string  `env:"MONITOR_RECIPIENT"`
	TemplateID      string  `env:"MONITOR_TEMPLATE_ID"`

	Portal  PortalConfig
	Aoksend AoksendConfig
}

func (c *MonitorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c *MonitorConfig) Validate() error {
	if c.Portal.Phone == "" || c.Portal.Password == "" {
		return fmt.Errorf("PORTAL_PHONE and PORTAL_PASSWORD are required")
	}
	if c.Recipient == "" || c.TemplateID == "" || c.Aoksend.AppKey == "" {
		return fmt.Errorf("MONITOR_RECIPIENT, MONITOR_TEMPLATE_ID and AOKSEND_APP_KEY are required")
	}
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL_SECONDS must be positive")
	}
	return nil
}

type PortalctlConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`

	Portal   PortalConfig
	Database DatabaseConfig
}

type validator interface {
	Validate() error
}

// Load reads an optional .env file, then parses the environment into T.
// If *T has a Validate method it is run before returning.
func Load[T any]() (*T, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if v, ok := any(&cfg).(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	return &cfg, nil
}
