// Package auth reads the principal set by the upstream identity provider and
// decides which role may perform which action.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"pizza-lovers/internal/apperr"
	"pizza-lovers/internal/models"
)

// Header names set by the identity provider
const (
	HeaderRole = "X-User-Role"
	HeaderID   = "X-User-ID"
)

// ErrUnauthenticated is returned when the request carries no principal
var ErrUnauthenticated = errors.New("missing or malformed identity headers")

// Principal is the authenticated caller: a role and the profile id it acts as
type Principal struct {
	Role models.Role
	ID   int64
}

// FromRequest extracts the principal from the identity headers
func FromRequest(r *http.Request) (Principal, error) {
	role, ok := models.ParseRole(strings.TrimSpace(r.Header.Get(HeaderRole)))
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(HeaderID)), 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, ErrUnauthenticated
	}
	return Principal{Role: role, ID: id}, nil
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// Action names an operation guarded by the policy
type Action string

const (
	ActionConvertCart    Action = "cart.convert"
	ActionManageCart     Action = "cart.manage"
	ActionViewOwnOrders  Action = "orders.view_own"
	ActionCancelOwnOrder Action = "orders.cancel_own"
	ActionDeleteOwnOrder Action = "orders.delete_own"

	ActionCallCenterOrder Action = "orders.callcenter"
	ActionManagerCancel   Action = "orders.manager_cancel"
	ActionManagerDelete   Action = "orders.manager_delete"

	ActionViewAllOrders Action = "orders.view_all"
	ActionDispatch      Action = "orders.dispatch"
	ActionAssign        Action = "orders.assign"

	ActionDeliveryStatus Action = "orders.delivery_status"
	ActionCourierOrders  Action = "orders.view_assigned"
	ActionCourierOnline  Action = "couriers.online"
	ActionListCouriers   Action = "couriers.list"
	ActionManageLoyalty  Action = "loyalty.manage"
	ActionViewLoyalty    Action = "loyalty.view_own"
	ActionManageMenu     Action = "menu.manage"
	ActionManageAccounts Action = "accounts.manage"
)

var policy = map[Action][]models.Role{
	ActionConvertCart:    {models.RoleCustomer},
	ActionManageCart:     {models.RoleCustomer},
	ActionViewOwnOrders:  {models.RoleCustomer},
	ActionCancelOwnOrder: {models.RoleCustomer},
	ActionDeleteOwnOrder: {models.RoleCustomer},

	ActionCallCenterOrder: {models.RoleOrderManager},
	ActionManagerCancel:   {models.RoleOrderManager},
	ActionManagerDelete:   {models.RoleOrderManager},

	ActionViewAllOrders: {models.RoleOrderManager, models.RoleDispatcher, models.RoleAdministrator},
	ActionDispatch:      {models.RoleDispatcher},
	ActionAssign:        {models.RoleDispatcher},

	ActionDeliveryStatus: {models.RoleDeliveryPerson},
	ActionCourierOrders:  {models.RoleDeliveryPerson},
	ActionCourierOnline:  {models.RoleDeliveryPerson},
	ActionListCouriers:   {models.RoleDispatcher, models.RoleOrderManager, models.RoleAdministrator},
	ActionManageLoyalty:  {models.RoleAdministrator},
	ActionViewLoyalty:    {models.RoleCustomer},
	ActionManageMenu:     {models.RoleMenuManager, models.RoleAdministrator},
	ActionManageAccounts: {models.RoleAdministrator},
}

// Allowed reports whether role may perform action
func Allowed(role models.Role, action Action) bool {
	for _, r := range policy[action] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize returns a ForbiddenError when p may not perform action
func Authorize(p Principal, action Action) error {
	if !Allowed(p.Role, action) {
		return apperr.Forbidden("role %s may not perform %s", p.Role, action)
	}
	return nil
}
