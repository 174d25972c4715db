package auth

import (
	"time"

	"github.com/angelmondragon/mercerie-backend/internal/users"
)

// LoginRequest captures the credentials sent to either login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the self-service sign up payload. Salary is never taken
// from the request; new employees start at zero.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=4"`
	Phone    string `json:"phone"`
}

// SessionResponse is returned after login or registration. WindowID is the
// tracked session the token is bound to.
type SessionResponse struct {
	AccessToken string         `json:"access_token"`
	WindowID    string         `json:"window_id"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        *users.UserDTO `json:"user"`
}

func (r RegisterRequest) toInput() users.Input {
	return users.Input{
		Name:     r.Name,
		Email:    r.Email,
		Username: r.Username,
		Password: r.Password,
		Phone:    r.Phone,
	}
}
