package audit

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/util"
)

type EventType string

const (
	EventBindRequested   EventType = "bind_requested"
	EventBindRejected    EventType = "bind_rejected"
	EventVerifySuccess   EventType = "verify_success"
	EventVerifyFailure   EventType = "verify_failure"
	EventUnbindRequested EventType = "unbind_requested"
	EventUnbindSuccess   EventType = "unbind_success"
	EventUnbindFailure   EventType = "unbind_failure"
	EventRateLimitExceed EventType = "rate_limit_exceeded"
)

type Event struct {
	Type      EventType
	Email     string
	DeviceID  string
	IP        string
	UserAgent string
	Details   map[string]interface{}
}

// Log writes event with the email masked.
func Log(event Event) {
	logger := log.With().
		Str("audit", "subscription").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.Email != "" {
		logger = logger.With().Str("email", util.MaskEmail(event.Email)).Logger()
	}
	if event.DeviceID != "" {
		logger = logger.With().Str("device_id", event.DeviceID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("subscription audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = util.ClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(event)
}
