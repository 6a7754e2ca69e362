package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/meterwatch/alert-server-go/internal/httputil"
)

// BalanceFetcher returns the raw account balance document of the mail provider.
type BalanceFetcher interface {
	Balance(ctx context.Context) (json.RawMessage, error)
}

type BalanceHandler struct {
	fetcher BalanceFetcher
}

func NewBalanceHandler(fetcher BalanceFetcher) *BalanceHandler {
	return &BalanceHandler{fetcher: fetcher}
}

func (h *BalanceHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	return r
}

// GET /balance
// Relays the provider response unchanged.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	body, err := h.fetcher.Balance(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch mail balance")
		writeJSON(w, http.StatusOK, httputil.ErrorResponse{
			Code:      httputil.CodeInternal,
			ErrorText: "获取余额时出错",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// NotFound answers unknown paths with a JSON 404.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, httputil.ErrorResponse{
		Code:      httputil.CodeNotFound,
		ErrorText: "路径未找到",
	})
}
