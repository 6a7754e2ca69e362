package mail

import (
	"github.com/meterwatch/alert-server-go/internal/config"
	"github.com/meterwatch/alert-server-go/internal/model"
)

const (
	ModeRegister = "注册"
	ModeUnbind   = "解绑"

	UnknownDevice   = "未知设备"
	UnknownLocation = "未知位置"
	NotAvailable    = "N/A"

	CelebrateTitle = "恭喜注册成功，现在是你邮箱绑定的设备情况"
	AlertTitle     = "注意注意！设备数值低于预警阀值！"

	readTimeLayout = "2006-01-02 15:04:05"
)

// CodeData builds the template data of a verification or unbind email.
func CodeData(email, codeField, code, modeField, mode string, device *model.Device, equipmentType model.EquipmentType) map[string]any {
	return map[string]any{
		"email":           email,
		codeField:         code,
		modeField:         mode,
		"device_name":     device.Name(UnknownDevice),
		"device_location": device.Site(UnknownLocation),
		"equipment_type":  equipmentType.Label(),
	}
}

func VerificationData(cfg config.AoksendConfig, email, code string, device *model.Device, equipmentType model.EquipmentType) map[string]any {
	return CodeData(email, cfg.VerifyCodeField, code, cfg.VerifyModeField, ModeRegister, device, equipmentType)
}

func UnbindData(cfg config.AoksendConfig, email, code string, device *model.Device, equipmentType model.EquipmentType) map[string]any {
	return CodeData(email, cfg.ChangeCodeField, code, cfg.ChangeModeField, ModeUnbind, device, equipmentType)
}

// NoticeData builds a device status notice. Reading fields render as N/A
// when reading is nil or a value is missing.
func NoticeData(fields config.NoticeFields, title, deviceName string, reading *model.Reading) map[string]any {
	data := map[string]any{
		fields.Title:      title,
		fields.DeviceName: deviceName,
		fields.Balance:    NotAvailable,
		fields.CheckTime:  NotAvailable,
		fields.Status:     NotAvailable,
		fields.LatestRead: NotAvailable,
	}
	if reading == nil {
		return data
	}

	data[fields.CheckTime] = reading.ReadTime.Format(readTimeLayout)
	if reading.RemainingBalance != nil {
		data[fields.Balance] = *reading.RemainingBalance
	}
	if reading.EquipmentStatus != nil {
		data[fields.Status] = *reading.EquipmentStatus
	}
	if reading.TotalReading != nil {
		data[fields.LatestRead] = *reading.TotalReading
	}
	return data
}
