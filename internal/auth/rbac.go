package auth

import (
	"net/url"
	"strings"
)

// RequiredGrants returns the grants, any one of which permits the request:
// the Cartesian product {method, *} x {resource, *}.
func RequiredGrants(method, resource string) PermissionSet {
	methods := [2]string{Wildcard, method}
	resources := [2]string{Wildcard, resource}

	required := make(PermissionSet, 4)
	for _, m := range methods {
		for _, r := range resources {
			required[m+grantSeparator+r] = struct{}{}
		}
	}
	return required
}

// IsAllowed decides whether grants permit method on resource.
// It is pure and safe for concurrent use. An empty set always denies.
func IsAllowed(method, resource string, grants PermissionSet) bool {
	if grants.IsEmpty() {
		return false
	}
	return RequiredGrants(method, resource).Intersects(grants)
}

// RootResource extracts the resource a request path addresses: the first
// path segment. "/receipts/abc/text?width=40" addresses "receipts".
func RootResource(path string) string {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	segment, _, _ := strings.Cut(strings.TrimLeft(path, "/"), "/")
	return segment
}

// Requirement renders the grant a denied request would have needed
func Requirement(method, resource string) string {
	return method + grantSeparator + resource
}
