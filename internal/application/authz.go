package application

import "slices"

// Authorize applies the role-or-ownership gate shared by every mutating operation.
//
// A principal without a user id is unauthenticated. The principal passes when
// it owns the resource (ownerID is non-empty and matches) or when its role is
// one of allowed. Everything else is unauthorized.
func Authorize(principal Principal, ownerID string, allowed ...Role) error {
	if principal.UserID == "" {
		return ErrUnauthenticated
	}
	if ownerID != "" && principal.UserID == ownerID {
		return nil
	}
	if slices.Contains(allowed, principal.Role) {
		return nil
	}
	return ErrUnauthorized
}

// canManageSessions reports whether a principal may create game sessions and see every player's availability.
func canManageSessions(principal Principal) bool {
	return Authorize(principal, "", RoleGM, RoleAdmin) == nil
}
