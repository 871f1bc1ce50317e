package enums

// Role is the role carried by an authenticated principal.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

var allRoles = []Role{RoleCustomer, RoleVendor, RoleAdmin}

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool { return oneOf(r, allRoles) }
