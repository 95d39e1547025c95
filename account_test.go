package exdock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePermission(t *testing.T) {
	assert.Equal(t, PermissionRead, ParsePermission("read"))
	assert.Equal(t, PermissionWrite, ParsePermission("write"))
	assert.Equal(t, PermissionReadWrite, ParsePermission("read-write"))

	// Unknown stored values degrade to none instead of failing.
	assert.Equal(t, PermissionNone, ParsePermission("admin"))
	assert.Equal(t, PermissionNone, ParsePermission(""))
}

func TestPermissionValid(t *testing.T) {
	assert.True(t, PermissionNone.Valid())
	assert.True(t, PermissionReadWrite.Valid())
	assert.False(t, Permission("sudo").Valid())
}

func TestFullUserValidate(t *testing.T) {
	full := FullUser{
		User:        User{UserID: 1, Email: "a@example.com"},
		Permissions: BackendPermissions{UserID: 1},
	}
	assert.NoError(t, full.Validate())

	full.Permissions.UserID = 2
	assert.Error(t, full.Validate())
}
