package models

// Role is the closed set of user profiles ("perfil")
type Role string

const (
	RoleGeneralAdmin Role = "admin_geral"
	RoleAdmin        Role = "admin"
	RoleOperations   Role = "operacional"
	RoleFinance      Role = "financeiro"
)

// AllRoles returns every role in privilege order
func AllRoles() []Role {
	return []Role{RoleGeneralAdmin, RoleAdmin, RoleOperations, RoleFinance}
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleGeneralAdmin, RoleAdmin, RoleOperations, RoleFinance:
		return true
	}
	return false
}

// ParseRole converts a raw profile string to a Role
func ParseRole(raw string) (Role, bool) {
	r := Role(raw)
	return r, r.Valid()
}
