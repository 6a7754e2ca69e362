package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/config"
	"github.com/meterwatch/alert-server-go/internal/util"
)

// Message is one templated email.
type Message struct {
	To         string
	TemplateID string
	Data       map[string]any
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type aoksendResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// AoksendClient talks to the Aoksend transactional email API.
type AoksendClient struct {
	http *resty.Client
	cfg  config.AoksendConfig
}

func NewAoksendClient(cfg config.AoksendConfig) *AoksendClient {
	client := resty.New().
		SetTimeout(cfg.Timeout()).
		SetHeader("Accept", "application/json")

	return &AoksendClient{http: client, cfg: cfg}
}

// Send posts msg as a form request. Only a body with code 200 counts as delivered.
func (c *AoksendClient) Send(ctx context.Context, msg Message) error {
	if c.cfg.AppKey == "" {
		return fmt.Errorf("aoksend app key is not configured")
	}
	if msg.TemplateID == "" {
		return fmt.Errorf("aoksend template id is empty")
	}

	data, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("encode template data: %w", err)
	}

	form := map[string]string{
		"app_key":     c.cfg.AppKey,
		"template_id": msg.TemplateID,
		"to":          msg.To,
		"data":        string(data),
	}
	if c.cfg.ReplyTo != "" {
		form["reply_to"] = c.cfg.ReplyTo
	}
	if c.cfg.Alias != "" {
		form["alias"] = c.cfg.Alias
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(c.cfg.APIURL)
	if err != nil {
		return fmt.Errorf("aoksend request failed: %w", err)
	}

	var result aoksendResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return fmt.Errorf("aoksend returned non-JSON body (status %d): %w", resp.StatusCode(), err)
	}
	if result.Code != 200 {
		return fmt.Errorf("aoksend error: %s (code: %d)", result.Message, result.Code)
	}

	log.Debug().
		Str("to", util.MaskEmail(msg.To)).
		Str("template_id", msg.TemplateID).
		Msg("aoksend accepted message")
	return nil
}

// Balance returns the provider's raw account balance response.
func (c *AoksendClient) Balance(ctx context.Context) (json.RawMessage, error) {
	if c.cfg.BalanceURL == "" {
		return nil, fmt.Errorf("aoksend balance url is not configured")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"app_key": c.cfg.AppKey}).
		Post(c.cfg.BalanceURL)
	if err != nil {
		return nil, fmt.Errorf("aoksend balance request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("aoksend balance returned status %d", resp.StatusCode())
	}

	body := resp.Body()
	if !json.Valid(body) {
		return nil, fmt.Errorf("aoksend balance returned non-JSON body")
	}
	return json.RawMessage(body), nil
}
