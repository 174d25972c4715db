package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mercerie-backend/internal/session"
	"github.com/angelmondragon/mercerie-backend/internal/users"
	pkgAuth "github.com/angelmondragon/mercerie-backend/pkg/auth"
	"github.com/angelmondragon/mercerie-backend/pkg/config"
	"github.com/angelmondragon/mercerie-backend/pkg/db/dbtest"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
	"github.com/angelmondragon/mercerie-backend/pkg/security"
)

var (
	testPasswordConfig = config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16}
	testJWTConfig      = config.JWTConfig{Secret: "secret", Issuer: "mercerie", ExpirationMinutes: 30}
)

type testEnv struct {
	svc     Service
	tracker *session.Tracker
	patrons *users.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := dbtest.Open(t)
	clients := users.NewClientRepository(conn)
	employees := users.NewEmployeeRepository(conn)
	patrons := users.NewPatronRepository(conn)

	accounts, err := users.NewService(users.ServiceParams{
		Clients:   clients,
		Employees: employees,
		Password:  testPasswordConfig,
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)

	tracker := session.NewTracker(logger.Nop(), nil)
	svc, err := NewService(ServiceParams{
		Clients:   clients,
		Employees: employees,
		Patrons:   patrons,
		Accounts:  accounts,
		Tracker:   tracker,
		JWTConfig: testJWTConfig,
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	return &testEnv{svc: svc, tracker: tracker, patrons: patrons}
}

func registration(username string) RegisterRequest {
	return RegisterRequest{Name: "Ana Pop", Email: username + "@x.ro", Username: username, Password: "parola"}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestRegisterAndLoginClient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.RegisterClient(ctx, registration("ana"))
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleClient, created.Role)
	assert.NotEqual(t, "parola", created.PasswordHash)

	user, err := env.svc.LoginClient(ctx, "ana", "parola")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
}

func TestRegisterDuplicateUsernameConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.RegisterClient(ctx, registration("ana"))
	require.NoError(t, err)
	_, err = env.svc.RegisterClient(ctx, registration("ana"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.RegisterClient(ctx, registration("ana"))
	require.NoError(t, err)

	_, wrongPassword := env.svc.LoginClient(ctx, "ana", "gresit")
	_, unknownUser := env.svc.LoginClient(ctx, "nobody", "parola")
	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)

	a, b := pkgerrors.As(wrongPassword), pkgerrors.As(unknownUser)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, pkgerrors.CodeUnauthorized, a.Code())
	assert.Equal(t, a.Code(), b.Code())
	assert.Equal(t, a.Message(), b.Message())
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestClientCannotLoginAsEmployee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.RegisterClient(ctx, registration("ana"))
	require.NoError(t, err)

	_, err = env.svc.LoginEmployee(ctx, "ana", "parola")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginEmployeeFallsBackToPatron(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	emp, err := env.svc.RegisterEmployee(ctx, registration("dan"))
	require.NoError(t, err)
	assert.Equal(t, 0, emp.Salary)

	hash, err := security.HashPassword("boss-pass", testPasswordConfig)
	require.NoError(t, err)
	patron := &models.User{Name: "Patron", Email: "p@x.ro", Username: "boss", PasswordHash: hash}
	require.NoError(t, env.patrons.Add(ctx, patron))

	got, err := env.svc.LoginEmployee(ctx, "dan", "parola")
	require.NoError(t, err)
	assert.Equal(t, emp.ID, got.ID)

	got, err = env.svc.LoginEmployee(ctx, "boss", "boss-pass")
	require.NoError(t, err)
	assert.Equal(t, patron.ID, got.ID)
	assert.True(t, got.IsPatron())
}

func TestStartAndEndEmployeeSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	emp, err := env.svc.RegisterEmployee(ctx, registration("dan"))
	require.NoError(t, err)

	resp, err := env.svc.StartSession(ctx, emp)
	require.NoError(t, err)
	assert.Equal(t, session.EmployeeWindowKey(emp.ID), resp.WindowID)
	assert.True(t, env.tracker.IsEmployeeOnline(emp.ID))

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.WindowID, claims.WindowID())
	assert.Equal(t, enums.UserRoleEmployee, claims.Role)

	env.svc.EndSession(ctx, claims)
	assert.False(t, env.tracker.IsEmployeeOnline(emp.ID))
}

func TestStartAndEndClientSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	client, err := env.svc.RegisterClient(ctx, registration("ana"))
	require.NoError(t, err)

	first, err := env.svc.StartSession(ctx, client)
	require.NoError(t, err)
	second, err := env.svc.StartSession(ctx, client)
	require.NoError(t, err)
	assert.NotEqual(t, first.WindowID, second.WindowID)
	assert.Equal(t, client.ID, env.tracker.ClientForWindow(first.WindowID).ID)
	assert.Nil(t, first.User.Salary)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, first.AccessToken)
	require.NoError(t, err)
	env.svc.EndSession(ctx, claims)
	assert.False(t, env.tracker.HasWindow(first.WindowID))
	assert.True(t, env.tracker.HasWindow(second.WindowID))
}
