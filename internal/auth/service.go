package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/mercerie-backend/internal/session"
	"github.com/angelmondragon/mercerie-backend/internal/users"
	pkgAuth "github.com/angelmondragon/mercerie-backend/pkg/auth"
	"github.com/angelmondragon/mercerie-backend/pkg/config"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
	"github.com/angelmondragon/mercerie-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	clientWindowPrefix        = "client-window:"
)

// Service authenticates clients and staff and binds each login to a tracked
// window.
type Service interface {
	// LoginClient and LoginEmployee return the same unauthorized error for an
	// unknown username and a wrong password.
	LoginClient(ctx context.Context, username, password string) (*models.User, error)
	LoginEmployee(ctx context.Context, username, password string) (*models.User, error)
	RegisterClient(ctx context.Context, req RegisterRequest) (*models.User, error)
	RegisterEmployee(ctx context.Context, req RegisterRequest) (*models.User, error)

	StartSession(ctx context.Context, user *models.User) (*SessionResponse, error)
	EndSession(ctx context.Context, claims *pkgAuth.AccessTokenClaims)
}

type credentialLookup interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type accountCreator interface {
	AddClient(ctx context.Context, input users.Input) (*models.User, error)
	AddEmployee(ctx context.Context, input users.Input) (*models.User, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Clients   credentialLookup
	Employees credentialLookup
	Patrons   credentialLookup
	Accounts  accountCreator
	Tracker   *session.Tracker
	JWTConfig config.JWTConfig
	Logger    *logger.Logger
}

type service struct {
	clients   credentialLookup
	employees credentialLookup
	patrons   credentialLookup
	accounts  accountCreator
	tracker   *session.Tracker
	jwtCfg    config.JWTConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Clients == nil || params.Employees == nil || params.Patrons == nil {
		return nil, fmt.Errorf("client, employee and patron lookups are required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account creator is required")
	}
	if params.Tracker == nil {
		return nil, fmt.Errorf("session tracker is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		clients:   params.Clients,
		employees: params.Employees,
		patrons:   params.Patrons,
		accounts:  params.Accounts,
		tracker:   params.Tracker,
		jwtCfg:    params.JWTConfig,
		logg:      params.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) LoginClient(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.authenticate(ctx, s.clients, username, password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.logg.Warn(s.logg.WithField(ctx, "username", username), "client login rejected")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// LoginEmployee checks regular employees first, then the patron.
func (s *service) LoginEmployee(ctx context.Context, username, password string) (*models.User, error) {
	for _, lookup := range []credentialLookup{s.employees, s.patrons} {
		user, err := s.authenticate(ctx, lookup, username, password)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}
	s.logg.Warn(s.logg.WithField(ctx, "username", username), "employee login rejected")
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
}

// authenticate returns nil, nil when the username is unknown or the password
// does not match.
func (s *service) authenticate(ctx context.Context, lookup credentialLookup, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil
	}
	user, err := lookup.FindByUsername(ctx, username)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if user == nil {
		return nil, nil
	}
	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "stored password hash unreadable", err)
		return nil, nil
	}
	if !valid {
		return nil, nil
	}
	return user, nil
}

func (s *service) RegisterClient(ctx context.Context, req RegisterRequest) (*models.User, error) {
	return s.accounts.AddClient(ctx, req.toInput())
}

func (s *service) RegisterEmployee(ctx context.Context, req RegisterRequest) (*models.User, error) {
	return s.accounts.AddEmployee(ctx, req.toInput())
}

// StartSession tracks user under a fresh window and mints a token bound to
// it. Staff always reuse their employee window key.
func (s *service) StartSession(ctx context.Context, user *models.User) (*SessionResponse, error) {
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is required")
	}

	var windowID string
	if user.IsStaff() {
		key, err := s.tracker.SetEmployeeWindow(ctx, user)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "track employee window")
		}
		windowID = key
	} else {
		windowID = clientWindowPrefix + uuid.NewString()
		if err := s.tracker.SetWindowUser(windowID, user); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "track client window")
		}
	}

	now := s.now()
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:   user.ID,
		Role:     user.Role,
		WindowID: windowID,
	})
	if err != nil {
		s.tracker.ClearWindowUser(windowID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	s.logg.Info(s.logg.WithWindowID(s.logg.WithUserID(ctx, user.ID.String()), windowID), "session started")
	return &SessionResponse{
		AccessToken: token,
		WindowID:    windowID,
		ExpiresAt:   now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
		User:        users.FromModel(user),
	}, nil
}

// EndSession forgets the window behind claims. Employee windows also announce
// the employee offline.
func (s *service) EndSession(ctx context.Context, claims *pkgAuth.AccessTokenClaims) {
	if claims == nil {
		return
	}
	if claims.Role.IsStaff() {
		s.tracker.ClearEmployeeWindow(ctx, claims.UserID)
		return
	}
	s.tracker.ClearWindowUser(claims.WindowID())
	s.logg.Info(s.logg.WithWindowID(ctx, claims.WindowID()), "session ended")
}
