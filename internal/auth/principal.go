package auth

// Principal is the verified identity behind a request: the token subject
// and the grants the token carried.
type Principal struct {
	Subject string
	Grants  PermissionSet
}

// Can reports whether the principal may call method on resource
func (p *Principal) Can(method, resource string) bool {
	if p == nil {
		return false
	}
	return IsAllowed(method, resource, p.Grants)
}
