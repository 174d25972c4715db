package users

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/mercerie-backend/pkg/config"
	"github.com/angelmondragon/mercerie-backend/pkg/db"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
	"github.com/angelmondragon/mercerie-backend/pkg/security"
)

// Service manages client and employee accounts.
type Service interface {
	AddEmployee(ctx context.Context, input Input) (*models.User, error)
	UpdateEmployee(ctx context.Context, id uuid.UUID, input Input) (*models.User, error)
	DeleteEmployee(ctx context.Context, id uuid.UUID) (bool, error)
	GetEmployee(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListEmployees(ctx context.Context) ([]models.User, error)

	AddClient(ctx context.Context, input Input) (*models.User, error)
	UpdateClient(ctx context.Context, id uuid.UUID, input Input) (*models.User, error)
	DeleteClient(ctx context.Context, id uuid.UUID) (bool, error)
	GetClient(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListClients(ctx context.Context) ([]models.User, error)

	// EnsurePatron creates the shop owner account unless one already exists.
	// It reports whether a new patron was created.
	EnsurePatron(ctx context.Context, input Input) (*models.User, bool, error)
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Clients   *Repository
	Employees *Repository
	// Patrons is only needed by EnsurePatron.
	Patrons  *Repository
	Password config.PasswordConfig
	Logger   *logger.Logger
}

type service struct {
	clients   *Repository
	employees *Repository
	patrons   *Repository
	password  config.PasswordConfig
	logg      *logger.Logger
}

// NewService constructs the users service.
func NewService(params ServiceParams) (Service, error) {
	if params.Clients == nil || params.Clients.Role() != enums.UserRoleClient {
		return nil, fmt.Errorf("client repository required")
	}
	if params.Employees == nil || params.Employees.Role() != enums.UserRoleEmployee {
		return nil, fmt.Errorf("employee repository required")
	}
	if params.Patrons != nil && params.Patrons.Role() != enums.UserRolePatron {
		return nil, fmt.Errorf("patron repository has role %s", params.Patrons.Role())
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		clients:   params.Clients,
		employees: params.Employees,
		patrons:   params.Patrons,
		password:  params.Password,
		logg:      params.Logger,
	}, nil
}

func (s *service) AddEmployee(ctx context.Context, input Input) (*models.User, error) {
	return s.add(ctx, s.employees, input)
}

func (s *service) UpdateEmployee(ctx context.Context, id uuid.UUID, input Input) (*models.User, error) {
	return s.update(ctx, s.employees, id, input)
}

func (s *service) DeleteEmployee(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.delete(ctx, s.employees, id)
}

func (s *service) GetEmployee(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.get(ctx, s.employees, id)
}

func (s *service) ListEmployees(ctx context.Context) ([]models.User, error) {
	return s.list(ctx, s.employees)
}

func (s *service) AddClient(ctx context.Context, input Input) (*models.User, error) {
	return s.add(ctx, s.clients, input)
}

func (s *service) UpdateClient(ctx context.Context, id uuid.UUID, input Input) (*models.User, error) {
	return s.update(ctx, s.clients, id, input)
}

func (s *service) DeleteClient(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.delete(ctx, s.clients, id)
}

func (s *service) GetClient(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.get(ctx, s.clients, id)
}

func (s *service) ListClients(ctx context.Context) ([]models.User, error) {
	return s.list(ctx, s.clients)
}

func (s *service) EnsurePatron(ctx context.Context, input Input) (*models.User, bool, error) {
	if s.patrons == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeInternal, "patron repository not configured")
	}
	existing, err := s.patrons.ListByRole(ctx)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list patrons")
	}
	if len(existing) > 0 {
		return &existing[0], false, nil
	}
	patron, err := s.add(ctx, s.patrons, input)
	if err != nil {
		return nil, false, err
	}
	return patron, true, nil
}

func (s *service) add(ctx context.Context, r *Repository, input Input) (*models.User, error) {
	input = normalizeInput(input)
	if err := validateInput(input, true); err != nil {
		return nil, err
	}
	if err := s.ensureUsernameFree(ctx, r, input.Username, uuid.Nil); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hash,
		Phone:        input.Phone,
	}
	if r.Role().IsStaff() {
		user.Salary = input.Salary
	}
	if err := r.Add(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("create %s", r.Role()))
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "role": r.Role().String()}), "user created")
	return user, nil
}

// update overwrites the editable fields. A password that already looks like
// a stored hash is kept verbatim so a round-tripped record is not re-hashed.
func (s *service) update(ctx context.Context, r *Repository, id uuid.UUID, input Input) (*models.User, error) {
	input = normalizeInput(input)
	if err := validateInput(input, false); err != nil {
		return nil, err
	}

	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("load %s", r.Role()))
	}
	if user == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", r.Role())
	}
	if err := s.ensureUsernameFree(ctx, r, input.Username, user.ID); err != nil {
		return nil, err
	}

	user.Name = input.Name
	user.Email = input.Email
	user.Username = input.Username
	user.Phone = input.Phone
	if r.Role().IsStaff() {
		user.Salary = input.Salary
	}
	if input.Password != "" {
		hash, err := s.updatedPasswordHash(input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := r.Update(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("update %s", r.Role()))
	}
	return user, nil
}

func (s *service) delete(ctx context.Context, r *Repository, id uuid.UUID) (bool, error) {
	deleted, err := r.Delete(ctx, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return false, pkgerrors.Newf(pkgerrors.CodeConflict, "%s still has orders", r.Role())
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("delete %s", r.Role()))
	}
	if deleted {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": id.String(), "role": r.Role().String()}), "user deleted")
	}
	return deleted, nil
}

func (s *service) get(ctx context.Context, r *Repository, id uuid.UUID) (*models.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("load %s", r.Role()))
	}
	if user == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", r.Role())
	}
	return user, nil
}

func (s *service) list(ctx context.Context, r *Repository) ([]models.User, error) {
	list, err := r.ListByRole(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("list %s", r.Role()))
	}
	return list, nil
}

func (s *service) ensureUsernameFree(ctx context.Context, r *Repository, username string, self uuid.UUID) error {
	existing, err := r.FindByUsername(ctx, username)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup username")
	}
	if existing != nil && existing.ID != self {
		return pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
	}
	return nil
}

// updatedPasswordHash keeps a value that already is a stored hash so editing a
// record without touching the password does not hash the hash.
func (s *service) updatedPasswordHash(password string) (string, error) {
	if security.LooksHashed(password) {
		return password, nil
	}
	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hash, nil
}

func normalizeInput(in Input) Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}

func validateInput(in Input, requirePassword bool) error {
	details := map[string]string{}
	if in.Name == "" {
		details["name"] = "required"
	}
	if in.Username == "" {
		details["username"] = "required"
	}
	if in.Email == "" {
		details["email"] = "required"
	} else if _, err := mail.ParseAddress(in.Email); err != nil {
		details["email"] = "invalid"
	}
	if requirePassword && in.Password == "" {
		details["password"] = "required"
	}
	if in.Salary < 0 {
		details["salary"] = "must be >= 0"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid user input").WithDetails(details)
	}
	return nil
}
