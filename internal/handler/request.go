package handler

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// flexField is a JSON value that clients send either as a number or a string.
type flexField struct {
	set      bool
	raw      string
	isString bool
}

func (f *flexField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	f.set = true
	if len(b) > 0 && b[0] == '"' {
		f.isString = true
		return json.Unmarshal(b, &f.raw)
	}
	f.raw = string(b)
	return nil
}

// String returns the value as text, empty when absent.
func (f flexField) String() string {
	return f.raw
}

// Int parses the value as an integer. JSON numbers with a fraction are
// truncated, strings must hold an integer.
func (f flexField) Int() (int, error) {
	s := strings.TrimSpace(f.raw)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if f.isString {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return int(v), nil
}

type subscriptionRequest struct {
	Mode          flexField `json:"mode"`
	Email         flexField `json:"email"`
	EquipmentType flexField `json:"equipment_type"`
	DeviceID      flexField `json:"device_id"`
	AlarmNum      flexField `json:"alarm_num"`
	Code          flexField `json:"code"`
	ChangeCode    flexField `json:"change_code"`
}
