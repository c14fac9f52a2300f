package enum

// ── Roles (CHECK constrained in DB) ──

const (
	UserRoleTable      = "TABLE"
	UserRoleServer     = "SERVER"
	UserRoleCook       = "COOK"
	UserRoleAccountant = "ACCOUNTANT"
	UserRoleAdmin      = "ADMIN"
)

// IsValidRole reports whether s is one of the five roles.
func IsValidRole(s string) bool {
	switch s {
	case UserRoleTable, UserRoleServer, UserRoleCook, UserRoleAccountant, UserRoleAdmin:
		return true
	}
	return false
}

// ── Display labels (no DB constraint) ──

// CategoryLabels maps dish categories to the French labels shown on menus.
var CategoryLabels = map[string]string{
	"STARTER": "Entrée",
	"MAIN":    "Plat principal",
	"DESSERT": "Dessert",
	"DRINK":   "Boisson",
}

// OrderStatusLabels maps order statuses to the labels shown to staff.
var OrderStatusLabels = map[string]string{
	"PENDING":   "En attente",
	"PREPARING": "En préparation",
	"READY":     "Prête",
	"SERVED":    "Servie",
	"PAID":      "Payée",
	"CANCELLED": "Annulée",
}

// Currency is the ISO code every amount is denominated in.
const Currency = "GNF"

const (
	LoginMinLength    = 6
	LoginMaxLength    = 30
	PasswordMinLength = 6
	// bcrypt hashes at most 72 bytes.
	PasswordMaxBytes = 72
)

// Column widths of free-text fields.
const (
	DishNameMaxLength    = 100
	TableNumberMaxLength = 10
)

const (
	CartQuantityMin = 1
	CartQuantityMax = 10
)
