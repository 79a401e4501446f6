package fulfillment

import (
	"strings"

	"pizza-lovers/internal/models"
)

// effect is the side work a transition carries besides the status change
type effect int

const (
	effectNone effect = iota
	effectAutoAssign
	effectAssign
	effectComplete
)

type edge struct {
	role     models.Role
	from, to models.OrderStatus
}

// transitions is every legal (role, from, to) move. Assignment is a separate
// dispatcher action and has its own row keyed by roleAssign.
var transitions = map[edge]effect{
	{models.RoleDispatcher, models.StatusPending, models.StatusKitchen}:    effectNone,
	{models.RoleDispatcher, models.StatusWaiting, models.StatusKitchen}:    effectNone,
	{models.RoleDispatcher, models.StatusKitchen, models.StatusReady}:      effectNone,
	{models.RoleDispatcher, models.StatusKitchen, models.StatusInDelivery}: effectAutoAssign,

	{roleAssign, models.StatusReady, models.StatusInDelivery}: effectAssign,

	{models.RoleDeliveryPerson, models.StatusInDelivery, models.StatusDelivered}: effectComplete,
	{models.RoleDeliveryPerson, models.StatusInDelivery, models.StatusCancelled}: effectNone,
}

// roleAssign keys manual courier assignment in the table
const roleAssign models.Role = "order_dispatcher:assign"

func init() {
	for _, from := range models.AllStatuses {
		if from.IsTerminal() {
			continue
		}
		transitions[edge{models.RoleCustomer, from, models.StatusCancelled}] = effectNone
		transitions[edge{models.RoleOrderManager, from, models.StatusCancelled}] = effectNone
	}
}

// DispatcherTargets are the statuses a dispatcher may ask for
var DispatcherTargets = []models.OrderStatus{models.StatusKitchen, models.StatusReady, models.StatusInDelivery}

// lookup returns the effect of moving from -> to as role
func lookup(role models.Role, from, to models.OrderStatus) (effect, bool) {
	e, ok := transitions[edge{role, from, to}]
	return e, ok
}

// legalTargets lists, in lifecycle order, where role may move an order in from
func legalTargets(role models.Role, from models.OrderStatus) []models.OrderStatus {
	var out []models.OrderStatus
	for _, to := range models.AllStatuses {
		if _, ok := lookup(role, from, to); ok {
			out = append(out, to)
		}
	}
	return out
}

func joinStatuses(statuses []models.OrderStatus) string {
	if len(statuses) == 0 {
		return "none"
	}
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// deletable is who may delete an order in which terminal status
var deletable = map[models.Role][]models.OrderStatus{
	models.RoleDeliveryPerson: {models.StatusCancelled, models.StatusDelivered},
	models.RoleCustomer:       {models.StatusCancelled, models.StatusDelivered},
	models.RoleOrderManager:   {models.StatusCancelled},
}

func canDelete(role models.Role, status models.OrderStatus) bool {
	for _, s := range deletable[role] {
		if s == status {
			return true
		}
	}
	return false
}
