package middleware

import (
	"net/http"
	"strings"
)

// CORSMiddleware opens the API to any origin and answers preflight requests itself.
type CORSMiddleware struct {
	methods string
	headers string
}

func NewCORSMiddleware(methods, headers []string) *CORSMiddleware {
	return &CORSMiddleware{
		methods: strings.Join(methods, ", "),
		headers: strings.Join(headers, ", "),
	}
}

func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("X-Content-Type-Options", "nosniff")

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", m.methods)
			h.Set("Access-Control-Allow-Headers", m.headers)
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
