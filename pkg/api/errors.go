package api

import (
	"net/http"

	"github.com/acme/codereviewd/pkg/apperr"
)

// statusFor maps an apperr.Kind to the HTTP status the synchronous
// endpoints respond with, per the status-code table in the HTTP surface
// section. Kinds the ingress layer never produces (e.g. ConfigInvalid)
// fall through to 500.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.PayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperr.WrongFileType:
		return http.StatusUnsupportedMediaType
	case apperr.MissingField, apperr.Malformed:
		return http.StatusBadRequest
	case apperr.EmptyChangeSet:
		return http.StatusOK
	case apperr.Cancelled, apperr.Timeout:
		return http.StatusGatewayTimeout
	case apperr.Upstream5xx, apperr.Transport, apperr.Persistence, apperr.Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// errBody builds the structured JSON error body mandated for synchronous
// ingress endpoints: {error: kind, message: string}.
func errBody(kind apperr.Kind, msg string) errorResponse {
	return errorResponse{Error: string(kind), Message: msg}
}
