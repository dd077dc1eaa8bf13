package rest

import (
	"errors"
	"net/http"

	"github.com/quickroom/room-service/internal/service"
)

type newUserRequest struct {
	Username string `json:"username"`
}

// addUser registers a user. The generated user_code in the response is the
// only time the bearer is handed out.
func (h *Handler) addUser(w http.ResponseWriter, r *http.Request) {
	var req newUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" {
		writeJSON(w, http.StatusBadRequest, Failure(1, "Username is required"))
		return
	}
	user, err := h.groups.AddUser(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyExists) {
			writeJSON(w, http.StatusOK, Failure(1, err.Error()))
			return
		}
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Success(user))
}
