package domain

// Principal is the authenticated caller of a core operation. It is produced
// per request by the resolver and never persisted.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) IsManager() bool  { return p.Role == RoleManager }
func (p Principal) IsEmployee() bool { return p.Role == RoleEmployee }

// Valid reports whether the principal carries an identity and a known role.
func (p Principal) Valid() bool {
	return p.UserID != "" && p.Role.Valid()
}
