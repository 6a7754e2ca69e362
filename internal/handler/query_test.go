package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/meterwatch/alert-server-go/internal/errors"
	"github.com/meterwatch/alert-server-go/internal/model"
	"github.com/meterwatch/alert-server-go/internal/service"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) FirstScreen(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockQuerier) Check(ctx context.Context, deviceID string, dataNum int) (*service.DeviceDetail, error) {
	args := m.Called(ctx, deviceID, dataNum)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DeviceDetail), args.Error(1)
}

func (m *mockQuerier) Search(ctx context.Context, keyword string) ([]model.Device, bool, error) {
	args := m.Called(ctx, keyword)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]model.Device), args.Bool(1), args.Error(2)
}

func getQuery(t *testing.T, h *QueryHandler, target string) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func strPtr(s string) *string { return &s }

func typePtr(t model.EquipmentType) *model.EquipmentType { return &t }

func TestQueryHandler_FirstScreen(t *testing.T) {
	q := new(mockQuerier)
	q.On("FirstScreen", mock.Anything).Return([]string{"1", "2"}, nil)

	resp := getQuery(t, NewQueryHandler(q), "/?mode=first_screen")
	assert.Equal(t, "200", resp["code"])
	assert.Equal(t, float64(2), resp["total_num"])
	assert.Equal(t, []any{"1", "2"}, resp["device_ids"])
}

func TestQueryHandler_Check(t *testing.T) {
	ratio := 80.0
	status := 1
	balance := 12.34
	readAt := time.Date(2026, 5, 1, 8, 0, 0, 0, time.Local)

	t.Run("renders the device and its readings as strings", func(t *testing.T) {
		q := new(mockQuerier)
		q.On("Check", mock.Anything, "42", 3).Return(&service.DeviceDetail{
			Device: &model.Device{
				ID:            "42",
				EquipmentName: strPtr("1栋101"),
				EquipmentType: typePtr(model.EquipmentWater),
				Ratio:         &ratio,
				Status:        &status,
			},
			Readings: []model.Reading{{DeviceID: "42", ReadTime: readAt, RemainingBalance: &balance}},
		}, nil)

		resp := getQuery(t, NewQueryHandler(q), "/?mode=check&device_id=42&data_num=3")
		assert.Equal(t, float64(200), resp["code"])
		assert.Equal(t, "1栋101", resp["equipmentName"])
		assert.Nil(t, resp["installationSite"])
		assert.Equal(t, float64(1), resp["equipmentType"])
		assert.Equal(t, "80", resp["ratio"])
		assert.Equal(t, "", resp["rate"])
		assert.Equal(t, "1", resp["status"])
		assert.Equal(t, float64(1), resp["total"])

		rows := resp["rows"].([]any)
		row := rows[0].(map[string]any)
		assert.Equal(t, "2026-05-01 08:00:00", row["read_time"])
		assert.Equal(t, "12.34", row["remainingBalance"])
		assert.Equal(t, "", row["total_reading"])
	})

	t.Run("data_num defaults to five", func(t *testing.T) {
		q := new(mockQuerier)
		q.On("Check", mock.Anything, "42", 5).Return(&service.DeviceDetail{Device: &model.Device{ID: "42"}}, nil)

		resp := getQuery(t, NewQueryHandler(q), "/?mode=check&device_id=42")
		assert.Equal(t, []any{}, resp["rows"])
		q.AssertExpectations(t)
	})

	t.Run("out of range data_num", func(t *testing.T) {
		resp := getQuery(t, NewQueryHandler(new(mockQuerier)), "/?mode=check&device_id=42&data_num=1001")
		assert.Equal(t, "400", resp["code"])
		assert.Equal(t, "data_num参数超出范围(1-1000)", resp["error"])
	})

	t.Run("device_id is checked before data_num", func(t *testing.T) {
		q := new(mockQuerier)
		resp := getQuery(t, NewQueryHandler(q), "/?mode=check&device_id=a-b&data_num=abc")
		assert.Equal(t, "400", resp["code"])
		assert.Equal(t, "无效的device_id参数", resp["error"])

		resp = getQuery(t, NewQueryHandler(q), "/?mode=check&data_num=0")
		assert.Equal(t, "缺少device_id参数", resp["error"])
		q.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("null equipment type renders as null", func(t *testing.T) {
		q := new(mockQuerier)
		q.On("Check", mock.Anything, "42", 5).Return(&service.DeviceDetail{Device: &model.Device{ID: "42"}}, nil)

		resp := getQuery(t, NewQueryHandler(q), "/?mode=check&device_id=42")
		assert.Contains(t, resp, "equipmentType")
		assert.Nil(t, resp["equipmentType"])
	})

	t.Run("unknown device", func(t *testing.T) {
		q := new(mockQuerier)
		q.On("Check", mock.Anything, "9", 5).Return(nil, apperrors.New(apperrors.ErrCodeNotFound, "设备未找到"))

		resp := getQuery(t, NewQueryHandler(q), "/?mode=check&device_id=9")
		assert.Equal(t, "404", resp["code"])
		assert.Equal(t, "设备未找到", resp["error"])
	})

	t.Run("database failure", func(t *testing.T) {
		q := new(mockQuerier)
		q.On("Check", mock.Anything, "9", 5).Return(nil, apperrors.Database(errors.New("gone away")))

		resp := getQuery(t, NewQueryHandler(q), "/?mode=check&device_id=9")
		assert.Equal(t, "500", resp["code"])
		assert.NotContains(t, resp["error"], "gone away")
	})
}

func TestQueryHandler_Search(t *testing.T) {
	t.Run("matches", func(t *testing.T) {
		status := 0
		q := new(mockQuerier)
		q.On("Search", mock.Anything, "一号楼").Return([]model.Device{
			{ID: "42", EquipmentName: strPtr("1栋101"), InstallationSite: strPtr("一号楼"),
				EquipmentType: typePtr(model.EquipmentElectric), Status: &status},
			{ID: "43"},
		}, true, nil)

		resp := getQuery(t, NewQueryHandler(q), "/?mode=search&key_word=%E4%B8%80%E5%8F%B7%E6%A5%BC")
		assert.Equal(t, float64(200), resp["code"])
		assert.Equal(t, float64(0), resp["search_status"])
		assert.Equal(t, float64(2), resp["total"])

		rows := resp["rows"].([]any)
		row := rows[0].(map[string]any)
		assert.Equal(t, "0", row["equipmentType"])
		assert.Equal(t, float64(0), row["status"])

		untyped := rows[1].(map[string]any)
		assert.Contains(t, untyped, "equipmentType")
		assert.Nil(t, untyped["equipmentType"])
	})

	t.Run("short keyword", func(t *testing.T) {
		q := new(mockQuerier)
		q.On("Search", mock.Anything, "楼").Return(nil, false, nil)

		resp := getQuery(t, NewQueryHandler(q), "/?mode=search&key_word=%E6%A5%BC")
		assert.Equal(t, float64(418), resp["code"])
		assert.Equal(t, float64(1), resp["search_status"])
		assert.Equal(t, "请输入两个以上的字符。", resp["error_talk"])
	})
}

func TestQueryHandler_InvalidMode(t *testing.T) {
	resp := getQuery(t, NewQueryHandler(new(mockQuerier)), "/?mode=drop")
	assert.Equal(t, "400", resp["code"])
	assert.Equal(t, "无效的mode参数", resp["error"])
}
