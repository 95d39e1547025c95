package exdock

import (
	"context"
	"fmt"
)

// Permission is the access level a backend user holds on one admin area.
type Permission string

const (
	PermissionNone      Permission = "none"
	PermissionRead      Permission = "read"
	PermissionWrite     Permission = "write"
	PermissionReadWrite Permission = "read-write"
)

// ParsePermission converts a stored permission string; unknown values map to
// none rather than failing, so a bad row can never lock an admin out of the UI.
func ParsePermission(value string) Permission {
	switch Permission(value) {
	case PermissionRead, PermissionWrite, PermissionReadWrite:
		return Permission(value)
	default:
		return PermissionNone
	}
}

func (p Permission) Valid() bool {
	switch p {
	case PermissionNone, PermissionRead, PermissionWrite, PermissionReadWrite:
		return true
	default:
		return false
	}
}

// User is a backend account.
type User struct {
	UserID   int64  `json:"userId"`
	Email    string `json:"email"`
	Password string `json:"-"`
}

// UserCreation is the payload for creating a backend account. Password is
// hashed before it reaches the datastore.
type UserCreation struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// BackendPermissions is the per-user permission row, one column per admin area.
type BackendPermissions struct {
	UserID           int64      `json:"userId"`
	UserPermission   Permission `json:"userPermission"`
	ServerSettings   Permission `json:"serverSettings"`
	Template         Permission `json:"template"`
	CategoryContent  Permission `json:"categoryContent"`
	CategoryProducts Permission `json:"categoryProducts"`
	ProductContent   Permission `json:"productContent"`
	ProductPrice     Permission `json:"productPrice"`
	ProductWarehouse Permission `json:"productWarehouse"`
	TextPages        Permission `json:"textPages"`
	APIKey           string     `json:"apiKey,omitempty"`
}

// FullUser joins a user with its permission row.
type FullUser struct {
	User        User               `json:"user"`
	Permissions BackendPermissions `json:"permissions"`
}

func (f FullUser) Validate() error {
	if f.User.UserID != f.Permissions.UserID {
		return fmt.Errorf("user id %d does not match permissions user id %d", f.User.UserID, f.Permissions.UserID)
	}
	return nil
}

// AccountRepository is the account module: plain single-table CRUD plus the
// transactional user+permissions delete. Every successful write marks the
// accounts cache domain dirty.
type AccountRepository interface {
	GetAllUsers(ctx context.Context) ([]User, error)
	GetUserByID(ctx context.Context, userID int64) (User, error)
	CreateUser(ctx context.Context, creation UserCreation) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	// DeleteUser removes the user and its permission row in one transaction:
	// either both rows disappear or neither does.
	DeleteUser(ctx context.Context, userID int64) error

	GetPermissionsByUserID(ctx context.Context, userID int64) (BackendPermissions, error)
	CreatePermissions(ctx context.Context, perms BackendPermissions) (BackendPermissions, error)
	UpdatePermissions(ctx context.Context, perms BackendPermissions) (BackendPermissions, error)
	DeletePermissions(ctx context.Context, userID int64) error

	GetFullUserByEmail(ctx context.Context, email string) (FullUser, error)
	GetFullUserByID(ctx context.Context, userID int64) (FullUser, error)
}
