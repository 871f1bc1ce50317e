package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Principal is the authenticated caller every service operation is scoped to.
type Principal struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (p Principal) IsAdmin() bool    { return p.Role == enums.RoleAdmin }
func (p Principal) IsVendor() bool   { return p.Role == enums.RoleVendor }
func (p Principal) IsCustomer() bool { return p.Role == enums.RoleCustomer }

// Valid reports whether the principal carries a user and a known role.
func (p Principal) Valid() bool {
	return p.UserID != uuid.Nil && p.Role.IsValid()
}
