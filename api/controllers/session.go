package controllers

import (
	"net/http"

	"github.com/angelmondragon/mercerie-backend/api/middleware"
	"github.com/angelmondragon/mercerie-backend/api/responses"
	"github.com/angelmondragon/mercerie-backend/internal/session"
	"github.com/angelmondragon/mercerie-backend/internal/users"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

type sessionResponse struct {
	WindowID string         `json:"window_id"`
	User     *users.UserDTO `json:"user"`
}

// Session reports who is logged in on the caller's window.
func Session(tracker *session.Tracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		windowID := middleware.WindowIDFromContext(r.Context())
		user := tracker.WindowUser(windowID)
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session ended"))
			return
		}
		responses.WriteSuccess(w, sessionResponse{WindowID: windowID, User: users.FromModel(user)})
	}
}
