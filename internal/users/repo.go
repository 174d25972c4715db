package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercerie-backend/internal/repo"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/enums"
)

// Repository exposes user persistence for one role. Every query, including
// updates and deletes, only sees rows of that role.
type Repository struct {
	*repo.Generic[models.User]
	role enums.UserRole
}

// NewRepository constructs a role-scoped users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB, role enums.UserRole) *Repository {
	return &Repository{
		Generic: repo.NewGeneric[models.User](db, repo.WithFilter(func(q *gorm.DB) *gorm.DB {
			return q.Where("users.role = ?", role)
		})),
		role: role,
	}
}

// NewClientRepository, NewEmployeeRepository and NewPatronRepository are the
// three role views used by the services.
func NewClientRepository(db *gorm.DB) *Repository   { return NewRepository(db, enums.UserRoleClient) }
func NewEmployeeRepository(db *gorm.DB) *Repository { return NewRepository(db, enums.UserRoleEmployee) }
func NewPatronRepository(db *gorm.DB) *Repository   { return NewRepository(db, enums.UserRolePatron) }

// Role returns the role this repository is scoped to.
func (r *Repository) Role() enums.UserRole {
	return r.role
}

// Add persists user after forcing its role to the repository role.
func (r *Repository) Add(ctx context.Context, user *models.User) error {
	if user == nil {
		return repo.ErrNilEntity
	}
	user.Role = r.role
	return r.Generic.Add(ctx, user)
}

// FindByUsername returns nil without error when no user matches. Usernames
// are unique per role and compared exactly.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.FirstWhere(ctx, "username = ?", username)
}

func (r *Repository) FindByEmail(ctx context.Context, email string) ([]models.User, error) {
	return r.Where(ctx, "email = ?", email)
}

func (r *Repository) FindByName(ctx context.Context, name string) ([]models.User, error) {
	return r.Where(ctx, "name = ?", name)
}

func (r *Repository) FindByPhone(ctx context.Context, phone string) ([]models.User, error) {
	return r.Where(ctx, "phone = ?", phone)
}

// FindByIDs loads every user of the role whose id is listed.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.Where(ctx, "id IN ?", ids)
}

// ListByRole returns every user of the repository role in registration order.
func (r *Repository) ListByRole(ctx context.Context) ([]models.User, error) {
	return r.GetAll(ctx)
}
