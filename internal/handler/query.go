package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/meterwatch/alert-server-go/internal/errors"
	"github.com/meterwatch/alert-server-go/internal/httputil"
	"github.com/meterwatch/alert-server-go/internal/model"
	"github.com/meterwatch/alert-server-go/internal/service"
)

const (
	QueryFirstScreen = "first_screen"
	QueryCheck       = "check"
	QuerySearch      = "search"
)

// searchRejected is the business code for a keyword too short to search.
const searchRejected = httputil.CodeRejected

// DeviceQuerier is the read-only device lookup behind the query API.
type DeviceQuerier interface {
	FirstScreen(ctx context.Context) ([]string, error)
	Check(ctx context.Context, deviceID string, dataNum int) (*service.DeviceDetail, error)
	Search(ctx context.Context, keyword string) ([]model.Device, bool, error)
}

type QueryHandler struct {
	querier DeviceQuerier
}

func NewQueryHandler(querier DeviceQuerier) *QueryHandler {
	return &QueryHandler{querier: querier}
}

func (h *QueryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Handle)
	return r
}

// GET /?mode=first_screen|check|search
func (h *QueryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch q.Get("mode") {
	case QueryFirstScreen:
		h.firstScreen(w, r)
	case QueryCheck:
		h.check(w, r, q.Get("device_id"), q.Get("data_num"))
	case QuerySearch:
		h.search(w, r, q.Get("key_word"))
	default:
		queryError(w, apperrors.InvalidInput("无效的mode参数"))
	}
}

func (h *QueryHandler) firstScreen(w http.ResponseWriter, r *http.Request) {
	ids, err := h.querier.FirstScreen(r.Context())
	if err != nil {
		queryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":       strconv.Itoa(httputil.CodeOK),
		"total_num":  len(ids),
		"device_ids": ids,
	})
}

func (h *QueryHandler) check(w http.ResponseWriter, r *http.Request, deviceID, rawDataNum string) {
	if err := service.ValidateDeviceID(deviceID); err != nil {
		queryError(w, err)
		return
	}

	dataNum, err := service.ParseDataNum(rawDataNum)
	if err != nil {
		queryError(w, err)
		return
	}

	detail, err := h.querier.Check(r.Context(), deviceID, dataNum)
	if err != nil {
		queryError(w, err)
		return
	}

	rows := make([]map[string]string, 0, len(detail.Readings))
	for _, reading := range detail.Readings {
		rows = append(rows, map[string]string{
			"device_id":        reading.DeviceID,
			"read_time":        formatTime(&reading.ReadTime),
			"total_reading":    formatFloat(reading.TotalReading),
			"remainingBalance": formatFloat(reading.RemainingBalance),
		})
	}

	d := detail.Device
	writeJSON(w, http.StatusOK, map[string]any{
		"equipmentName":    deref(d.EquipmentName),
		"device_id":        d.ID,
		"installationSite": deref(d.InstallationSite),
		"equipmentType":    d.EquipmentType,
		"ratio":            formatFloat(d.Ratio),
		"rate":             formatFloat(d.Rate),
		"acctId":           deref(d.AcctID),
		"status":           formatInt(d.Status),
		"updated_at":       formatTime(d.UpdatedAt),
		"total":            len(rows),
		"rows":             rows,
		"code":             httputil.CodeOK,
	})
}

func (h *QueryHandler) search(w http.ResponseWriter, r *http.Request, keyword string) {
	devices, searched, err := h.querier.Search(r.Context(), keyword)
	if err != nil {
		queryError(w, err)
		return
	}
	if !searched {
		writeJSON(w, http.StatusOK, map[string]any{
			"search_status": 1,
			"error_talk":    "请输入两个以上的字符。",
			"code":          searchRejected,
		})
		return
	}

	rows := make([]map[string]any, 0, len(devices))
	for _, d := range devices {
		var status any
		if d.Status != nil {
			status = *d.Status
		}
		rows = append(rows, map[string]any{
			"equipmentName":    deref(d.EquipmentName),
			"installationSite": deref(d.InstallationSite),
			"device_id":        d.ID,
			"equipmentType":    formatType(d.EquipmentType),
			"status":           status,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"search_status": 0,
		"total":         len(rows),
		"rows":          rows,
		"code":          httputil.CodeOK,
	})
}

// queryError writes {"code": "400", "error": "..."} with the code as a string.
func queryError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Database(err)
	}

	code := httputil.CodeFromError(appErr.Code)
	message := appErr.Message
	if code >= httputil.CodeInternal {
		log.Error().Err(err).Msg("query failed")
		code = httputil.CodeInternal
		message = "服务器内部错误"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"code":  strconv.Itoa(code),
		"error": message,
	})
}
