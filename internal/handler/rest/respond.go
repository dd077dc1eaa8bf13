package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quickroom/room-service/internal/service"
	"github.com/quickroom/room-service/internal/storage"
)

// CommonResponse is the REST envelope: code 0 means success, anything else
// carries a client-presentable message.
type CommonResponse struct {
	Code int32  `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

func Success(data any) CommonResponse {
	return CommonResponse{Code: 0, Msg: "Success", Data: data}
}

func Failure(code int32, msg string) CommonResponse {
	return CommonResponse{Code: code, Msg: msg}
}

// ListResponse is the paged envelope of listing endpoints.
type ListResponse struct {
	Count      int64 `json:"count"`
	TotalPages int64 `json:"total_pages"`
	Objects    any   `json:"objects"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service and storage failures to statuses. Internal error
// text never reaches the body on 5xx.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, Failure(1, err.Error()))
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, Failure(1, err.Error()))
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Failure(1, err.Error()))
	case errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrGroupExpired),
		errors.Is(err, service.ErrGroupFull):
		writeJSON(w, http.StatusBadRequest, Failure(1, err.Error()))
	case storage.IsConnection(err):
		logger.Error("storage unavailable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, Failure(1, "Service unavailable"))
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, Failure(1, "Service unavailable"))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, Failure(1, "Invalid request body"))
		return false
	}
	return true
}
