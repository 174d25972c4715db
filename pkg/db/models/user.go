package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercerie-backend/pkg/enums"
)

// User is every party that can log in. Role selects the variant: clients
// place orders, employees fulfill them, and the patron is an employee that
// also manages the shop. Salary only applies to staff.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name         string         `gorm:"column:name;not null" json:"name"`
	Email        string         `gorm:"column:email;not null;index" json:"email"`
	Username     string         `gorm:"column:username;not null;uniqueIndex:ux_users_role_username" json:"username"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	Phone        string         `gorm:"column:phone;not null;default:''" json:"phone"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;uniqueIndex:ux_users_role_username" json:"role"`
	Salary       int            `gorm:"column:salary;not null;default:0" json:"salary,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsClient() bool { return u != nil && u.Role == enums.UserRoleClient }

// IsStaff is true for employees and the patron.
func (u *User) IsStaff() bool { return u != nil && u.Role.IsStaff() }

func (u *User) IsPatron() bool { return u != nil && u.Role == enums.UserRolePatron }
