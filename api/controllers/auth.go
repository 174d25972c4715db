package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/mercerie-backend/api/middleware"
	"github.com/angelmondragon/mercerie-backend/api/responses"
	"github.com/angelmondragon/mercerie-backend/api/validators"
	"github.com/angelmondragon/mercerie-backend/internal/auth"
	"github.com/angelmondragon/mercerie-backend/internal/users"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

const tokenHeader = "X-Mercerie-Token"

type loginFunc func(ctx context.Context, username, password string) (*models.User, error)

type registerFunc func(ctx context.Context, req auth.RegisterRequest) (*models.User, error)

// ClientLogin authenticates a client and opens a client window.
func ClientLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("auth service unavailable", logg)
	}
	return login(svc, svc.LoginClient, logg)
}

// EmployeeLogin authenticates an employee or the patron and opens the employee window.
func EmployeeLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("auth service unavailable", logg)
	}
	return login(svc, svc.LoginEmployee, logg)
}

func ClientRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("auth service unavailable", logg)
	}
	return register(svc, svc.RegisterClient, logg)
}

// EmployeeRegister creates an employee account on behalf of the patron. No
// window is opened: the employee signs in through EmployeeLogin.
func EmployeeRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("auth service unavailable", logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.RegisterEmployee(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, users.FromModel(user))
	}
}

func login(svc auth.Service, fn loginFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := fn(r.Context(), body.Username, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.StartSession(r.Context(), user)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set(tokenHeader, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

func register(svc auth.Service, fn registerFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := fn(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.StartSession(r.Context(), user)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set(tokenHeader, result.AccessToken)
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// Logout ends the window the token was issued for. Later requests with the
// same token are rejected by the auth middleware.
func Logout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		svc.EndSession(r.Context(), claims)
		w.WriteHeader(http.StatusNoContent)
	}
}

func unavailable(msg string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, msg))
	}
}
