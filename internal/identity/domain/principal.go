package domain

// Principal is the authenticated actor for one operation: a username plus its
// resolved authority set. It is never persisted.
type Principal struct {
	Username    string
	Authorities []string
}

// HasAuthority reports whether the principal carries the named authority.
func (p Principal) HasAuthority(name string) bool {
	for _, a := range p.Authorities {
		if a == name {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the principal carries the admin authority.
func (p Principal) IsAdmin() bool { return p.HasAuthority(RoleAdmin) }
