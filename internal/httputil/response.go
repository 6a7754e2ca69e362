package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/meterwatch/alert-server-go/internal/errors"
)

// Business codes carried in the body of every subscription API response.
// The transport status is always 200.
const (
	CodeOK           = 200
	CodeBadRequest   = 400
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeRejected     = 418
	CodeInternal     = 500
	CodeUpstreamFail = 502
)

const internalErrorText = "服务器内部错误"

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error body: {"code": 418, "error_text": "..."}
type ErrorResponse struct {
	Code      int    `json:"code"`
	ErrorText string `json:"error_text"`
}

// WriteError writes err as a business error with transport status 200.
// Errors that are not AppErrors are logged and replaced by a generic message.
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		log.Error().Err(err).Msg("unhandled error")
		appErr = apperrors.Internal(internalErrorText)
	}

	code := CodeFromError(appErr.Code)
	message := appErr.Message
	if code == CodeInternal {
		if ok {
			log.Error().Err(appErr).Msg("internal error")
		}
		if appErr.Code != apperrors.ErrCodeInternal {
			message = internalErrorText
		}
	}

	WriteJSON(w, http.StatusOK, ErrorResponse{Code: code, ErrorText: message})
}

// CodeFromError maps ErrorCode to the business code
func CodeFromError(code apperrors.ErrorCode) int {
	switch code {
	// 400 bad input
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeMissingRequired:
		return CodeBadRequest

	// 403 device consistency
	case apperrors.ErrCodeForbidden,
		apperrors.ErrCodeDeviceNotFound,
		apperrors.ErrCodeTypeMismatch:
		return CodeForbidden

	case apperrors.ErrCodeNotFound:
		return CodeNotFound

	// 418 business rule rejection
	case apperrors.ErrCodeLimitExceeded,
		apperrors.ErrCodeCooldown,
		apperrors.ErrCodeAlreadySubscribed,
		apperrors.ErrCodeCodeExpired,
		apperrors.ErrCodeCodeIncorrect,
		apperrors.ErrCodeNoActiveSubscription,
		apperrors.ErrCodeRateLimitExceeded:
		return CodeRejected

	case apperrors.ErrCodeExternal:
		return CodeUpstreamFail

	default:
		return CodeInternal
	}
}
