// Package access maps roles to the capabilities they hold. Every request is
// checked against a Policy once, before any handler or service logic runs.
package access

import "github.com/restopos/api/internal/enum"

// Capability names one class of operation.
type Capability string

const (
	ViewMenu       Capability = "view_menu"
	ManageCart     Capability = "manage_cart"
	Checkout       Capability = "checkout"
	ViewOrders     Capability = "view_orders"
	AdvanceKitchen Capability = "advance_kitchen"
	ManageMenu     Capability = "manage_menu"
	ServeTables    Capability = "serve_tables"
	RecordExpense  Capability = "record_expense"
	ViewFinance    Capability = "view_finance"
	ManageUsers    Capability = "manage_users"
)

// Policy answers capability questions for one role.
type Policy interface {
	Role() string
	Can(c Capability) bool
}

type rolePolicy struct {
	role string
	caps map[Capability]bool
}

func (p rolePolicy) Role() string          { return p.role }
func (p rolePolicy) Can(c Capability) bool { return p.caps[c] }

type adminPolicy struct{}

func (adminPolicy) Role() string        { return enum.UserRoleAdmin }
func (adminPolicy) Can(Capability) bool { return true }

type denyPolicy struct{ role string }

func (p denyPolicy) Role() string        { return p.role }
func (denyPolicy) Can(Capability) bool { return false }

func grant(role string, caps ...Capability) rolePolicy {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return rolePolicy{role: role, caps: m}
}

var policies = map[string]Policy{
	enum.UserRoleTable:      grant(enum.UserRoleTable, ViewMenu, ManageCart, Checkout),
	enum.UserRoleServer:     grant(enum.UserRoleServer, ViewMenu, ViewOrders, ServeTables),
	enum.UserRoleCook:       grant(enum.UserRoleCook, ViewMenu, ViewOrders, AdvanceKitchen, ManageMenu),
	enum.UserRoleAccountant: grant(enum.UserRoleAccountant, ViewMenu, ViewOrders, RecordExpense, ViewFinance),
	enum.UserRoleAdmin:      adminPolicy{},
}

// For returns the policy for role. Unknown roles get a policy that denies everything.
func For(role string) Policy {
	if p, ok := policies[role]; ok {
		return p
	}
	return denyPolicy{role: role}
}

// Any reports whether p grants at least one of caps.
func Any(p Policy, caps ...Capability) bool {
	for _, c := range caps {
		if p.Can(c) {
			return true
		}
	}
	return false
}
