package rest

import (
	"context"
	"net/http"

	"github.com/quickroom/room-service/internal/domain/model"
)

// UserCodeHeader is the sole bearer of identity on the REST surface.
const UserCodeHeader = "x-user-code"

type ctxKey int

const userKey ctxKey = iota

// requireUser resolves the x-user-code header and injects the user into the
// request context. Requests without a valid code are rejected.
func (h *Handler) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.Header.Get(UserCodeHeader)
		if code == "" {
			writeJSON(w, http.StatusUnauthorized, Failure(1, "Missing x-user-code header"))
			return
		}
		user, err := h.auth.ResolveUserCode(r.Context(), code)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, Failure(1, "User code is not valid"))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey, *user)))
	}
}

func userFrom(ctx context.Context) model.User {
	u, _ := ctx.Value(userKey).(model.User)
	return u
}
