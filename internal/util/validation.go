package util

import (
	"net"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	deviceIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	keywordRegex  = regexp.MustCompile(`^[a-zA-Z0-9\x{4e00}-\x{9fa5}\s]+$`)
)

const (
	maxDeviceIDLength = 50
	maxKeywordLength  = 50
)

func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

func IsValidDeviceID(s string) bool {
	return len(s) <= maxDeviceIDLength && deviceIDRegex.MatchString(s)
}

// IsValidKeyword accepts letters, digits, CJK ideographs and whitespace, up to 50 characters.
func IsValidKeyword(s string) bool {
	return utf8.RuneCountInString(s) <= maxKeywordLength && keywordRegex.MatchString(s)
}

// ClientIP prefers X-Real-IP, then the first X-Forwarded-For hop, then the socket address.
func ClientIP(r *http.Request) string {
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
