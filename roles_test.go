package storefront_test

import (
	"testing"

	storefront "github.com/PlainAnoyn/go-storefront"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw   string
		want  storefront.UserRole
		valid bool
	}{
		{"standard", storefront.RoleStandard, true},
		{"moderator", storefront.RoleModerator, true},
		{"admin", storefront.RoleAdmin, true},
		{"Admin", "", false},
		{"root", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			role, ok := storefront.ParseRole(tc.raw)
			assert.Equal(t, tc.valid, ok)
			assert.Equal(t, tc.want, role)
		})
	}
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, storefront.IsValidRole(storefront.RoleStandard))
	assert.True(t, storefront.IsValidRole(storefront.RoleAdmin))
	assert.False(t, storefront.IsValidRole("superuser"))
}

func TestRoleIsAtLeast(t *testing.T) {
	tests := []struct {
		name    string
		role    storefront.UserRole
		minRole storefront.UserRole
		want    bool
	}{
		{"admin meets admin", storefront.RoleAdmin, storefront.RoleAdmin, true},
		{"admin meets moderator", storefront.RoleAdmin, storefront.RoleModerator, true},
		{"admin meets standard", storefront.RoleAdmin, storefront.RoleStandard, true},
		{"moderator meets standard", storefront.RoleModerator, storefront.RoleStandard, true},
		{"moderator below admin", storefront.RoleModerator, storefront.RoleAdmin, false},
		{"standard below moderator", storefront.RoleStandard, storefront.RoleModerator, false},
		{"standard meets standard", storefront.RoleStandard, storefront.RoleStandard, true},
		{"unknown role never qualifies", "superuser", storefront.RoleStandard, false},
		{"unknown minimum never matches", storefront.RoleAdmin, "superuser", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, storefront.RoleIsAtLeast(tc.role, tc.minRole))
		})
	}
}
