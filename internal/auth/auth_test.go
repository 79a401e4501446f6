package auth

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/models"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		id      string
		want    Principal
		wantErr bool
	}{
		{"customer", "customer", "7", Principal{models.RoleCustomer, 7}, false},
		{"padded dispatcher", " order_dispatcher ", " 3 ", Principal{models.RoleDispatcher, 3}, false},
		{"missing role", "", "7", Principal{}, true},
		{"unknown role", "chef", "7", Principal{}, true},
		{"missing id", "customer", "", Principal{}, true},
		{"zero id", "customer", "0", Principal{}, true},
		{"non numeric id", "customer", "abc", Principal{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/orders", nil)
			r.Header.Set(HeaderRole, tt.role)
			r.Header.Set(HeaderID, tt.id)

			got, err := FromRequest(r)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	_, ok := FromContext(r.Context())
	assert.False(t, ok)

	ctx := WithPrincipal(r.Context(), Principal{models.RoleAdministrator, 1})
	p, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, models.RoleAdministrator, p.Role)
}

func TestPolicy(t *testing.T) {
	tests := []struct {
		role    models.Role
		action  Action
		allowed bool
	}{
		{models.RoleCustomer, ActionConvertCart, true},
		{models.RoleOrderManager, ActionConvertCart, false},
		{models.RoleOrderManager, ActionCallCenterOrder, true},
		{models.RoleDispatcher, ActionCallCenterOrder, false},
		{models.RoleDispatcher, ActionDispatch, true},
		{models.RoleDispatcher, ActionAssign, true},
		{models.RoleDeliveryPerson, ActionDispatch, false},
		{models.RoleDeliveryPerson, ActionDeliveryStatus, true},
		{models.RoleCustomer, ActionDeliveryStatus, false},
		{models.RoleAdministrator, ActionManageLoyalty, true},
		{models.RoleCustomer, ActionManageLoyalty, false},
		{models.RoleMenuManager, ActionManageMenu, true},
		{models.RoleCustomer, ActionManageMenu, false},
		{models.RoleOrderManager, ActionManagerDelete, true},
		{models.RoleCustomer, ActionManagerDelete, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.allowed, Allowed(tt.role, tt.action))

			err := Authorize(Principal{Role: tt.role, ID: 1}, tt.action)
			var forbidden apperr.ForbiddenError
			assert.Equal(t, !tt.allowed, errors.As(err, &forbidden))
		})
	}
}

func TestEveryActionHasARole(t *testing.T) {
	for action, roles := range policy {
		assert.NotEmpty(t, roles, "action %s", action)
	}
}
