package postgres

import (
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
)

// UserRecord is a row of the users table.
type UserRecord struct {
	ID           string       `gorm:"primaryKey;size:36"`
	Email        string       `gorm:"size:254;uniqueIndex;not null"`
	Username     string       `gorm:"size:64;uniqueIndex;not null"`
	PasswordHash string       `gorm:"size:255;not null"`
	Enabled      bool         `gorm:"not null"`
	Roles        []RoleRecord `gorm:"many2many:user_roles;joinForeignKey:UserID;joinReferences:RoleID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserRecord) TableName() string { return "users" }

// RoleRecord is a row of the roles table.
type RoleRecord struct {
	ID          uint               `gorm:"primaryKey"`
	Name        string             `gorm:"size:64;uniqueIndex;not null"`
	Permissions []PermissionRecord `gorm:"many2many:role_permissions;joinForeignKey:RoleID;joinReferences:PermissionID"`
}

func (RoleRecord) TableName() string { return "roles" }

// PermissionRecord is a row of the permissions table.
type PermissionRecord struct {
	ID       uint   `gorm:"primaryKey"`
	Resource string `gorm:"size:128;not null;uniqueIndex:idx_permission_identity"`
	Action   string `gorm:"size:64;not null;uniqueIndex:idx_permission_identity"`
	Name     string `gorm:"size:128;not null;uniqueIndex:idx_permission_identity"`
}

func (PermissionRecord) TableName() string { return "permissions" }

func (p PermissionRecord) toModel() models.Permission {
	return models.Permission{Resource: p.Resource, Action: p.Action, Name: p.Name}
}

func (r RoleRecord) toModel() models.Role {
	perms := make([]models.Permission, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, p.toModel())
	}
	return models.Role{Name: r.Name, Permissions: perms}
}

func (u UserRecord) toModel() *models.User {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, r.Name)
	}
	return &models.User{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		Enabled:  u.Enabled,
		Roles:    roles,
	}
}
