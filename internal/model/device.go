package model

import "time"

// Device is a row of the device table maintained by the mirror job.
type Device struct {
	ID               string         `db:"id" json:"device_id"`
	Addr             *string        `db:"addr" json:"addr,omitempty"`
	EquipmentName    *string        `db:"equipment_name" json:"equipmentName"`
	InstallationSite *string        `db:"installation_site" json:"installationSite"`
	EquipmentType    *EquipmentType `db:"equipment_type" json:"equipmentType"`
	Ratio            *float64       `db:"ratio" json:"ratio"`
	Rate             *float64       `db:"rate" json:"rate"`
	AcctID           *string        `db:"acct_id" json:"acctId"`
	Status           *int           `db:"status" json:"status"`
	UpdatedAt        *time.Time     `db:"updated_at" json:"updated_at"`
}

// HasType reports whether the device is recorded with equipment type t.
func (d *Device) HasType(t EquipmentType) bool {
	return d != nil && d.EquipmentType != nil && *d.EquipmentType == t
}

// Name returns the device name or fallback when unknown.
func (d *Device) Name(fallback string) string {
	if d == nil || d.EquipmentName == nil || *d.EquipmentName == "" {
		return fallback
	}
	return *d.EquipmentName
}

// Site returns the installation site or fallback when unknown.
func (d *Device) Site(fallback string) string {
	if d == nil || d.InstallationSite == nil || *d.InstallationSite == "" {
		return fallback
	}
	return *d.InstallationSite
}

// Reading is a row of the data table.
type Reading struct {
	DeviceID         string    `db:"device_id" json:"device_id"`
	ReadTime         time.Time `db:"read_time" json:"read_time"`
	TotalReading     *float64  `db:"total_reading" json:"total_reading"`
	RemainingBalance *float64  `db:"remaining_balance" json:"remainingBalance"`
	EquipmentStatus  *int      `db:"equipment_status" json:"equipmentStatus"`
}

type UpsertDeviceParams struct {
	ID               string
	Addr             *string
	EquipmentName    *string
	InstallationSite *string
	EquipmentType    *int
	Ratio            *float64
	Rate             *float64
	AcctID           *string
	Status           *int
	Now              time.Time
}

type CreateReadingParams struct {
	DeviceID         string
	ReadTime         time.Time
	TotalReading     *float64
	RemainingBalance *float64
	EquipmentStatus  *int
	Unstandard       bool
	Now              time.Time
}
