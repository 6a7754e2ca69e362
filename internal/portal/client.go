package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/config"
	"github.com/meterwatch/alert-server-go/internal/util"
)

const (
	// UserAgent mimics the mobile web client the portal is built for.
	UserAgent = "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Mobile Safari/537.36 Edg/141.0.0.0"

	timestampLayout = "20060102150405"

	loginPath    = "/external/appUser/login"
	accountsPath = "/external/appUserAcct/list"
	devicesPath  = "/external/equipment/list"

	// maxPages bounds ListAllDevices against a portal that never reports a short page.
	maxPages = 1000
)

// Client talks to the utility billing portal. Every request carries the
// channel id, a timestamp and the signature.
type Client struct {
	http *resty.Client
	cfg  config.PortalConfig
	now  func() time.Time
}

func NewClient(cfg config.PortalConfig) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout()).
		SetHeader("Content-Type", "application/json;charset=UTF-8").
		SetHeader("Accept", "application/json, text/plain, */*").
		SetHeader("User-Agent", UserAgent)

	return &Client{http: http, cfg: cfg, now: time.Now}
}

func (c *Client) sign(params map[string]string) map[string]string {
	return c.signWith(Sign, params)
}

func (c *Client) signWith(signer func(map[string]string, string) string, params map[string]string) map[string]string {
	params["channelid"] = c.cfg.ChannelID
	params["timestamp"] = c.now().Format(timestampLayout)
	params["sign"] = signer(params, c.cfg.SignKey)
	return params
}

// Login authenticates with the plain password, which is sent MD5 hashed.
func (c *Client) Login(ctx context.Context, phone, password string) (*LoginResult, error) {
	body := c.signWith(SignLogin, map[string]string{
		"phoneNum": phone,
		"password": util.MD5Hex(password),
	})

	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(loginPath)
	var result LoginResult
	if err := decode("login", resp, err, &result); err != nil {
		return nil, err
	}
	if result.Code != 200 {
		return nil, &APIError{Op: "login", Code: result.Code, Msg: result.Msg}
	}
	if result.User == nil || result.User.AppUserID == "" {
		return nil, &APIError{Op: "login", Code: result.Code, Msg: "response has no user"}
	}

	log.Debug().Str("app_user_id", result.User.AppUserID.String()).Msg("portal login succeeded")
	return &result, nil
}

func (c *Client) ListAccounts(ctx context.Context, appUserID, roleID string) (*AccountList, error) {
	params := c.sign(map[string]string{
		"appUserId": appUserID,
		"roleId":    roleID,
	})

	resp, err := c.http.R().SetContext(ctx).SetQueryParams(params).Get(accountsPath)
	var list AccountList
	if err := decode("accounts", resp, err, &list); err != nil {
		return nil, err
	}
	if list.Code != 200 {
		return nil, &APIError{Op: "accounts", Code: list.Code, Msg: list.Msg}
	}
	return &list, nil
}

func (c *Client) ListDevices(ctx context.Context, appUserID, roleKey string, pageNum, pageSize int) (*DeviceList, error) {
	params := c.sign(map[string]string{
		"appUserId": appUserID,
		"pageNum":   strconv.Itoa(pageNum),
		"pageSize":  strconv.Itoa(pageSize),
		"roleKey":   roleKey,
	})

	resp, err := c.http.R().SetContext(ctx).SetQueryParams(params).Get(devicesPath)
	var list DeviceList
	if err := decode("devices", resp, err, &list); err != nil {
		return nil, err
	}
	if list.Code != 200 {
		return nil, &APIError{Op: "devices", Code: list.Code, Msg: list.Msg}
	}
	return &list, nil
}

// ListAllDevices walks the listing until total rows are collected or a short page arrives.
func (c *Client) ListAllDevices(ctx context.Context, appUserID, roleKey string, pageSize int) ([]DeviceRow, error) {
	if pageSize <= 0 {
		pageSize = config.DefaultMirrorPageSize
	}

	var rows []DeviceRow
	for page := 1; page <= maxPages; page++ {
		list, err := c.ListDevices(ctx, appUserID, roleKey, page, pageSize)
		if err != nil {
			return nil, err
		}
		rows = append(rows, list.Rows...)

		log.Debug().
			Int("page", page).
			Int("rows", len(list.Rows)).
			Int("total", list.Total).
			Msg("fetched device page")

		if len(list.Rows) < pageSize || (list.Total > 0 && len(rows) >= list.Total) {
			break
		}
	}
	return rows, nil
}

func decode(op string, resp *resty.Response, err error, dest any) error {
	if err != nil {
		return fmt.Errorf("portal %s: %w", op, err)
	}
	if resp.IsError() {
		return fmt.Errorf("portal %s: unexpected status %d", op, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), dest); err != nil {
		return fmt.Errorf("portal %s: decode response: %w", op, err)
	}
	return nil
}
