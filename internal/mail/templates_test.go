package mail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meterwatch/alert-server-go/internal/config"
	"github.com/meterwatch/alert-server-go/internal/model"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestVerificationData(t *testing.T) {
	cfg := config.AoksendConfig{VerifyCodeField: "code", VerifyModeField: "email_mode"}
	device := &model.Device{ID: "42", EquipmentName: strPtr("1栋101"), InstallationSite: strPtr("一号楼")}

	data := VerificationData(cfg, "a@x.com", "123456", device, model.EquipmentElectric)

	assert.Equal(t, map[string]any{
		"email":           "a@x.com",
		"code":            "123456",
		"email_mode":      "注册",
		"device_name":     "1栋101",
		"device_location": "一号楼",
		"equipment_type":  "电表",
	}, data)
}

func TestUnbindData_Defaults(t *testing.T) {
	cfg := config.AoksendConfig{ChangeCodeField: "change", ChangeModeField: "mode"}

	data := UnbindData(cfg, "a@x.com", "654321", nil, model.EquipmentWater)

	assert.Equal(t, "654321", data["change"])
	assert.Equal(t, "解绑", data["mode"])
	assert.Equal(t, "未知设备", data["device_name"])
	assert.Equal(t, "未知位置", data["device_location"])
	assert.Equal(t, "水表", data["equipment_type"])
}

func TestNoticeData(t *testing.T) {
	fields := config.NoticeFields{
		Title: "title", DeviceName: "acctName", Balance: "remainingBalance",
		CheckTime: "currentDealDate", Status: "equipmentStatus", LatestRead: "equipmentLatestLarge",
	}

	t.Run("with reading", func(t *testing.T) {
		reading := &model.Reading{
			DeviceID:         "42",
			ReadTime:         time.Date(2026, 3, 1, 8, 30, 0, 0, time.Local),
			TotalReading:     floatPtr(1024.5),
			RemainingBalance: floatPtr(12.3),
			EquipmentStatus:  intPtr(1),
		}

		data := NoticeData(fields, AlertTitle, "1栋101", reading)

		assert.Equal(t, AlertTitle, data["title"])
		assert.Equal(t, "1栋101", data["acctName"])
		assert.Equal(t, 12.3, data["remainingBalance"])
		assert.Equal(t, "2026-03-01 08:30:00", data["currentDealDate"])
		assert.Equal(t, 1, data["equipmentStatus"])
		assert.Equal(t, 1024.5, data["equipmentLatestLarge"])
	})

	t.Run("without reading", func(t *testing.T) {
		data := NoticeData(fields, CelebrateTitle, "未知设备", nil)

		assert.Equal(t, "N/A", data["remainingBalance"])
		assert.Equal(t, "N/A", data["currentDealDate"])
		assert.Equal(t, "N/A", data["equipmentStatus"])
		assert.Equal(t, "N/A", data["equipmentLatestLarge"])
	})
}
