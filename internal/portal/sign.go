package portal

import (
	"sort"
	"strings"

	"github.com/meterwatch/alert-server-go/internal/util"
)

// Sign computes the list request signature: keys sorted, each pair written
// as UPPER(key)=UPPER(value)&, the key appended, then MD5 hex.
func Sign(params map[string]string, key string) string {
	return signature(params, key, true)
}

// SignLogin is Sign without the separator before the key, which is the form
// the login endpoint verifies.
func SignLogin(params map[string]string, key string) string {
	return signature(params, key, false)
}

func signature(params map[string]string, key string, trailing bool) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, strings.ToUpper(k)+"="+strings.ToUpper(params[k]))
	}

	s := strings.Join(pairs, "&")
	if trailing && len(pairs) > 0 {
		s += "&"
	}
	return util.MD5Hex(s + key)
}
