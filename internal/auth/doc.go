// Package auth provides the authorization primitives of the receipt service.
//
// This package implements:
//   - Grants of the form METHOD@resource with wildcard support
//   - PermissionSet, an equality-based set of grants
//   - The access decision taken on every protected request
//   - Principal, the verified identity attached to a request
//
// Token signing and verification live in the session package; this package
// has no knowledge of the wire format.
package auth
