package model

import "time"

// Subscription is one row of the email table. Each bind attempt creates a row;
// rows are never deleted.
type Subscription struct {
	ID                 int64              `db:"id" json:"id"`
	UUID               string             `db:"uuid" json:"uuid"`
	Email              string             `db:"email" json:"email"`
	DeviceID           string             `db:"device_id" json:"deviceId"`
	EquipmentType      EquipmentType      `db:"equipment_type" json:"equipmentType"`
	VerificationCode   string             `db:"verifi_code" json:"-"`
	VerificationStatus VerificationStatus `db:"verifi_statu" json:"verificationStatus"`
	VerificationExpiry time.Time          `db:"verifi_end_time" json:"verificationExpiry"`
	UnbindCode         string             `db:"change_code" json:"-"`
	BindStatus         BindStatus         `db:"change_device_statu" json:"bindStatus"`
	LifeEnd            time.Time          `db:"life_end_time" json:"lifeEnd"`
	AlarmNum           float64            `db:"alarm_num" json:"alarmNum"`
	IPAddress          string             `db:"ip_address" json:"ipAddress"`
	CreatedAt          time.Time          `db:"created_time" json:"createdAt"`
	UpdatedAt          time.Time          `db:"updated_time" json:"updatedAt"`
}

// IsActive reports whether the record is verified, still bound and within its lifetime.
func (s Subscription) IsActive(now time.Time) bool {
	return s.VerificationStatus == VerificationVerified &&
		s.BindStatus == BindBound &&
		s.LifeEnd.After(now)
}

// InCooldown reports whether the record is pending with an unexpired code.
func (s Subscription) InCooldown(now time.Time) bool {
	return s.VerificationStatus == VerificationPending && s.VerificationExpiry.After(now)
}

type CreateSubscriptionParams struct {
	UUID               string
	Email              string
	DeviceID           string
	EquipmentType      EquipmentType
	VerificationCode   string
	VerificationExpiry time.Time
	UnbindCode         string
	LifeEnd            time.Time
	AlarmNum           int
	IPAddress          string
	Now                time.Time
}

// SubscriptionKey identifies the (email, device, type) triple a binding belongs to.
type SubscriptionKey struct {
	Email         string
	DeviceID      string
	EquipmentType EquipmentType
}

// ActiveSubscription is an active record joined with its device.
type ActiveSubscription struct {
	Email            string        `db:"email"`
	DeviceID         string        `db:"device_id"`
	AlarmNum         float64       `db:"alarm_num"`
	EquipmentType    EquipmentType `db:"equipment_type"`
	EquipmentName    *string       `db:"equipment_name"`
	InstallationSite *string       `db:"installation_site"`
}
