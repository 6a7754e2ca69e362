package jobs

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/config"
	"github.com/meterwatch/alert-server-go/internal/mail"
	"github.com/meterwatch/alert-server-go/internal/metrics"
	"github.com/meterwatch/alert-server-go/internal/portal"
)

const balanceField = "remainingBalance"

type PortalClient interface {
	Login(ctx context.Context, phone, password string) (*portal.LoginResult, error)
	ListAccounts(ctx context.Context, appUserID, roleID string) (*portal.AccountList, error)
}

// MonitorRules selects accounts worth a notice. A row matches when the
// monitored field is numeric and at or below Threshold, or when its name
// contains one of the keywords and its balance is at or below that
// keyword's threshold.
type MonitorRules struct {
	Field          string
	Threshold      float64
	EleKeyword     string
	EleThreshold   float64
	WaterKeyword   string
	WaterThreshold float64
}

func RulesFromConfig(cfg *config.MonitorConfig) MonitorRules {
	return MonitorRules{
		Field:          cfg.Field,
		Threshold:      cfg.Threshold,
		EleKeyword:     cfg.EleKeyword,
		EleThreshold:   cfg.EleThreshold,
		WaterKeyword:   cfg.WaterKeyword,
		WaterThreshold: cfg.WaterThreshold,
	}
}

func (r MonitorRules) Matches(a portal.Account) bool {
	if r.Field != "" {
		if v, ok := a.Number(r.Field); ok && v <= r.Threshold {
			return true
		}
	}

	balance, ok := a.Number(balanceField)
	if !ok {
		return false
	}
	name := a.Name()
	if r.EleKeyword != "" && strings.Contains(name, r.EleKeyword) && balance <= r.EleThreshold {
		return true
	}
	return r.WaterKeyword != "" && strings.Contains(name, r.WaterKeyword) && balance <= r.WaterThreshold
}

// MonitorJob logs into the portal each round and mails low accounts to one recipient.
type MonitorJob struct {
	client     PortalClient
	mailer     Mailer
	rules      MonitorRules
	phone      string
	password   string
	recipient  string
	templateID string
	ticker     *ticker
}

func NewMonitorJob(client PortalClient, mailer Mailer, cfg *config.MonitorConfig) *MonitorJob {
	j := &MonitorJob{
		client:     client,
		mailer:     mailer,
		rules:      RulesFromConfig(cfg),
		phone:      cfg.Portal.Phone,
		password:   cfg.Portal.Password,
		recipient:  cfg.Recipient,
		templateID: cfg.TemplateID,
	}
	j.ticker = newTicker("portal monitor", cfg.Interval(), func(ctx context.Context) {
		j.RunOnce(ctx)
	})
	return j
}

func (j *MonitorJob) Start() {
	j.ticker.start()
}

func (j *MonitorJob) Stop() {
	j.ticker.stop()
}

// RunOnce returns the number of notices sent. Login or listing failures skip the round.
func (j *MonitorJob) RunOnce(ctx context.Context) int {
	login, err := j.client.Login(ctx, j.phone, j.password)
	if err != nil {
		log.Error().Err(err).Msg("portal login failed")
		return 0
	}
	if login.User == nil || login.User.AppUserID == "" || login.User.RoleID == "" {
		log.Error().Msg("portal login returned no user or role id")
		return 0
	}

	accounts, err := j.client.ListAccounts(ctx, login.User.AppUserID.String(), login.User.RoleID.String())
	if err != nil {
		log.Error().Err(err).Msg("failed to list portal accounts")
		return 0
	}

	sent := 0
	for _, account := range accounts.Rows {
		if ctx.Err() != nil {
			break
		}
		if !j.rules.Matches(account) {
			log.Debug().Str("account", account.Name()).Msg("account above threshold")
			continue
		}

		err := j.mailer.Dispatch(ctx, mail.KindMonitor, mail.Message{
			To:         j.recipient,
			TemplateID: j.templateID,
			Data:       map[string]any(account),
		})
		if err != nil {
			log.Error().Err(err).Str("account", account.Name()).Msg("failed to send monitor email")
			continue
		}
		metrics.RecordAlertSent("monitor")
		log.Info().Str("account", account.Name()).Msg("monitor email sent")
		sent++
	}

	log.Info().Int("accounts", len(accounts.Rows)).Int("sent", sent).Msg("monitor round finished")
	return sent
}
