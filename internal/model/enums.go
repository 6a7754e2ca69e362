package model

// EquipmentType is the meter kind stored on both devices and subscriptions.
type EquipmentType int

const (
	EquipmentElectric EquipmentType = 0
	EquipmentWater    EquipmentType = 1
)

func (t EquipmentType) Valid() bool {
	return t == EquipmentElectric || t == EquipmentWater
}

// Label is the name used in email templates.
func (t EquipmentType) Label() string {
	if t == EquipmentElectric {
		return "电表"
	}
	return "水表"
}

type VerificationStatus int

const (
	VerificationPending  VerificationStatus = 0
	VerificationVerified VerificationStatus = 1
)

type BindStatus int

const (
	BindBound   BindStatus = 0
	BindUnbound BindStatus = 1
)
