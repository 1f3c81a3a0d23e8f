package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/garage-labs/garage-api/internal/app/users"
	"github.com/garage-labs/garage-api/internal/app/vehicles"
	"github.com/garage-labs/garage-api/internal/ports/out/idempotency"
	"github.com/garage-labs/garage-api/internal/ports/out/userrepo"
	"github.com/garage-labs/garage-api/internal/ports/out/vehiclerepo"
)

type errorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er errorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestId = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

func writeUnavailable(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "storage is temporarily unavailable", nil)
}

func isUnavailable(err error) bool {
	return errors.Is(err, userrepo.ErrUnavailable) ||
		errors.Is(err, vehiclerepo.ErrUnavailable) ||
		errors.Is(err, idempotency.ErrUnavailable)
}

// writeAppError maps application and infrastructure errors to responses.
func writeAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if ue := (*users.Error)(nil); errors.As(err, &ue) {
		writeError(w, r, ue.Status, ue.Code, ue.Message, ue.Details)
		return
	}
	if ve := (*vehicles.Error)(nil); errors.As(err, &ve) {
		writeError(w, r, ve.Status, ve.Code, ve.Message, ve.Details)
		return
	}
	if isUnavailable(err) {
		logger.Warn("storage unavailable", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeUnavailable(w, r)
		return
	}
	logger.Error("unhandled error", "error", err, "request_id", middleware.GetReqID(r.Context()))
	writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
}
