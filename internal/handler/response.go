package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/meterwatch/alert-server-go/internal/httputil"
	"github.com/meterwatch/alert-server-go/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func formatType(t *model.EquipmentType) any {
	if t == nil {
		return nil
	}
	return strconv.Itoa(int(*t))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
