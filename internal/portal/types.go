package portal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Scalar is a portal value that may arrive as a JSON string or number.
type Scalar string

func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	*s = Scalar(b)
	return nil
}

func (s Scalar) String() string {
	return string(s)
}

// StringPtr returns nil for an absent or empty value.
func (s *Scalar) StringPtr() *string {
	if s == nil || *s == "" {
		return nil
	}
	v := string(*s)
	return &v
}

// FloatPtr returns nil for an absent, empty or non-numeric value.
func (s *Scalar) FloatPtr() *float64 {
	if s == nil || *s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(*s)), 64)
	if err != nil {
		return nil
	}
	return &f
}

// IntPtr returns nil for an absent, empty or non-integer value.
func (s *Scalar) IntPtr() *int {
	f := s.FloatPtr()
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// APIError is a response whose code is not 200.
type APIError struct {
	Op   string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal %s: code %d: %s", e.Op, e.Code, e.Msg)
}

type User struct {
	AppUserID Scalar `json:"appUserId"`
	RoleID    Scalar `json:"roleId"`
	RoleKey   Scalar `json:"roleKey"`
	NickName  Scalar `json:"nickName"`
}

type LoginResult struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	User *User  `json:"user"`
}

// Account is one billing account row. Rows are kept as decoded JSON so any
// field can be monitored and the row sent as template data unchanged.
type Account map[string]any

// Name returns acctName, empty when missing.
func (a Account) Name() string {
	s, _ := a["acctName"].(string)
	return s
}

// Number reports the field as a number. String values are not numbers.
func (a Account) Number(field string) (float64, bool) {
	v, ok := a[field].(float64)
	return v, ok
}

type AccountList struct {
	Code  int       `json:"code"`
	Msg   string    `json:"msg"`
	Total int       `json:"total"`
	Rows  []Account `json:"rows"`
}

// DeviceRow is one meter from the equipment listing.
type DeviceRow struct {
	ID                    Scalar  `json:"id"`
	Addr                  *Scalar `json:"addr"`
	EquipmentName         *Scalar `json:"equipmentName"`
	InstallationSite      *Scalar `json:"installationSite"`
	EquipmentType         *Scalar `json:"equipmentType"`
	Ratio                 *Scalar `json:"ratio"`
	Rate                  *Scalar `json:"rate"`
	AcctID                *Scalar `json:"acctId"`
	EquipmentStatus       *Scalar `json:"equipmentStatus"`
	CurrentDealDate       *Scalar `json:"currentDealDate"`
	EquipmentCurrentLarge *Scalar `json:"equipmentCurrentLarge"`
	RemainingBalance      *Scalar `json:"remainingBalance"`
}

// Status maps 开 to 1 and 关 to 0. Anything else is unknown.
func (d DeviceRow) Status() *int {
	if d.EquipmentStatus == nil {
		return nil
	}
	var n int
	switch *d.EquipmentStatus {
	case "开":
		n = 1
	case "关":
		n = 0
	default:
		return nil
	}
	return &n
}

type DeviceList struct {
	Code  int         `json:"code"`
	Msg   string      `json:"msg"`
	Total int         `json:"total"`
	Rows  []DeviceRow `json:"rows"`
}
