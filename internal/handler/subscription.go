package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meterwatch/alert-server-go/internal/audit"
	"github.com/meterwatch/alert-server-go/internal/config"
	apperrors "github.com/meterwatch/alert-server-go/internal/errors"
	"github.com/meterwatch/alert-server-go/internal/httputil"
	"github.com/meterwatch/alert-server-go/internal/metrics"
	"github.com/meterwatch/alert-server-go/internal/model"
	"github.com/meterwatch/alert-server-go/internal/service"
	"github.com/meterwatch/alert-server-go/internal/util"
)

const (
	ModeBind          = "reg"
	ModeVerify        = "enter_code"
	ModeUnbindRequest = "change_code"
	ModeUnbindConfirm = "enter_change"
)

// Subscriber is the subscription lifecycle behind the email API.
type Subscriber interface {
	Bind(ctx context.Context, req service.BindRequest) error
	Verify(ctx context.Context, email, code string) error
	RequestUnbind(ctx context.Context, key model.SubscriptionKey) error
	ConfirmUnbind(ctx context.Context, key model.SubscriptionKey, code string) error
}

type SubscriptionHandler struct {
	subscriber Subscriber
}

func NewSubscriptionHandler(subscriber Subscriber) *SubscriptionHandler {
	return &SubscriptionHandler{subscriber: subscriber}
}

func (h *SubscriptionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Handle)
	r.Post("/api/email", h.Handle)

	return r
}

// POST /
// Dispatches on the mode field of the JSON body.
func (h *SubscriptionHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, "invalid", apperrors.InvalidInput("请求数据格式错误"))
		return
	}

	mode := req.Mode.String()
	switch mode {
	case "":
		h.fail(w, r, "missing", apperrors.MissingRequired("缺少必需参数mode"))
	case ModeBind:
		h.bind(w, r, req)
	case ModeVerify:
		h.verify(w, r, req)
	case ModeUnbindRequest:
		h.requestUnbind(w, r, req)
	case ModeUnbindConfirm:
		h.confirmUnbind(w, r, req)
	default:
		h.fail(w, r, "unknown", apperrors.InvalidInput("未知的模式"))
	}
}

func (h *SubscriptionHandler) bind(w http.ResponseWriter, r *http.Request, req subscriptionRequest) {
	alarmNum := config.DefaultAlarmNum
	if req.AlarmNum.set {
		n, err := req.AlarmNum.Int()
		if err != nil {
			h.fail(w, r, ModeBind, apperrors.InvalidInput("预警值必须是有效的整数"))
			return
		}
		if n <= 0 {
			h.fail(w, r, ModeBind, apperrors.InvalidInput("预警值必须大于0"))
			return
		}
		alarmNum = n
	}

	// An unparseable type is rejected by the service as an unknown type.
	equipmentType := model.EquipmentType(-1)
	if n, err := req.EquipmentType.Int(); req.EquipmentType.set && err == nil {
		equipmentType = model.EquipmentType(n)
	}

	bind := service.BindRequest{
		Email:         req.Email.String(),
		DeviceID:      req.DeviceID.String(),
		EquipmentType: equipmentType,
		AlarmNum:      alarmNum,
		IPAddress:     util.ClientIP(r),
	}

	if err := h.subscriber.Bind(r.Context(), bind); err != nil {
		h.auditFailure(r, audit.EventBindRejected, bind.Email, bind.DeviceID, err)
		h.fail(w, r, ModeBind, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:     audit.EventBindRequested,
		Email:    bind.Email,
		DeviceID: bind.DeviceID,
		Details:  map[string]interface{}{"alarm_num": alarmNum},
	})
	h.ok(w, ModeBind, map[string]any{
		"code":            httputil.CodeOK,
		"set_client_mode": "wait_user_verifi",
	})
}

func (h *SubscriptionHandler) verify(w http.ResponseWriter, r *http.Request, req subscriptionRequest) {
	email, code := req.Email.String(), req.Code.String()
	if email == "" || code == "" {
		h.fail(w, r, ModeVerify, apperrors.MissingRequired("缺少必需参数"))
		return
	}

	if err := h.subscriber.Verify(r.Context(), email, code); err != nil {
		h.auditFailure(r, audit.EventVerifyFailure, email, "", err)
		h.fail(w, r, ModeVerify, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventVerifySuccess, Email: email})
	h.ok(w, ModeVerify, map[string]any{
		"code":         httputil.CodeOK,
		"verifi_statu": int(model.VerificationVerified),
	})
}

// subscriptionKey reads the (email, device, type) triple shared by both unbind modes.
func subscriptionKey(req subscriptionRequest) (model.SubscriptionKey, error) {
	equipmentType := -1
	if req.EquipmentType.set {
		n, err := req.EquipmentType.Int()
		if err != nil {
			return model.SubscriptionKey{}, apperrors.InvalidInput("设备类型必须是有效的整数")
		}
		equipmentType = n
	}

	key := model.SubscriptionKey{
		Email:         req.Email.String(),
		DeviceID:      req.DeviceID.String(),
		EquipmentType: model.EquipmentType(equipmentType),
	}
	if key.Email == "" || key.DeviceID == "" || !key.EquipmentType.Valid() {
		return key, apperrors.MissingRequired("缺少必需参数")
	}
	return key, nil
}

func (h *SubscriptionHandler) requestUnbind(w http.ResponseWriter, r *http.Request, req subscriptionRequest) {
	key, err := subscriptionKey(req)
	if err != nil {
		h.fail(w, r, ModeUnbindRequest, err)
		return
	}

	if err := h.subscriber.RequestUnbind(r.Context(), key); err != nil {
		h.auditFailure(r, audit.EventUnbindFailure, key.Email, key.DeviceID, err)
		h.fail(w, r, ModeUnbindRequest, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventUnbindRequested, Email: key.Email, DeviceID: key.DeviceID})
	h.ok(w, ModeUnbindRequest, map[string]any{
		"code":            httputil.CodeOK,
		"set_client_mode": "wait_user_change",
	})
}

func (h *SubscriptionHandler) confirmUnbind(w http.ResponseWriter, r *http.Request, req subscriptionRequest) {
	key, err := subscriptionKey(req)
	if err == nil && req.ChangeCode.String() == "" {
		err = apperrors.MissingRequired("缺少必需参数")
	}
	if err != nil {
		h.fail(w, r, ModeUnbindConfirm, err)
		return
	}

	if err := h.subscriber.ConfirmUnbind(r.Context(), key, req.ChangeCode.String()); err != nil {
		h.auditFailure(r, audit.EventUnbindFailure, key.Email, key.DeviceID, err)
		h.fail(w, r, ModeUnbindConfirm, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventUnbindSuccess, Email: key.Email, DeviceID: key.DeviceID})
	h.ok(w, ModeUnbindConfirm, map[string]any{
		"code":                httputil.CodeOK,
		"change_device_statu": int(model.BindUnbound),
	})
}

func (h *SubscriptionHandler) ok(w http.ResponseWriter, mode string, body map[string]any) {
	metrics.RecordSubscriptionRequest(mode, httputil.CodeOK)
	writeJSON(w, http.StatusOK, body)
}

func (h *SubscriptionHandler) fail(w http.ResponseWriter, r *http.Request, mode string, err error) {
	code := httputil.CodeInternal
	if appErr, ok := apperrors.AsAppError(err); ok {
		code = httputil.CodeFromError(appErr.Code)
	}
	metrics.RecordSubscriptionRequest(mode, code)
	httputil.WriteError(w, err)
}

// auditFailure records business rejections. Internal errors are logged by WriteError.
func (h *SubscriptionHandler) auditFailure(r *http.Request, event audit.EventType, email, deviceID string, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok || httputil.CodeFromError(appErr.Code) == httputil.CodeInternal {
		return
	}
	audit.LogFromRequest(r, audit.Event{
		Type:     event,
		Email:    email,
		DeviceID: deviceID,
		Details:  map[string]interface{}{"reason": string(appErr.Code)},
	})
}
