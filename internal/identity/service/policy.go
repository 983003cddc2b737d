package service

import "github.com/ironbark-dev/ironbark/internal/identity/domain"

// Access policy over user records, expressed as predicates taking the acting
// principal and the target's username so they stay unit-testable without a
// transport harness.

// canView allows admins to read any account and everyone to read their own.
func canView(actor domain.Principal, targetUsername string) bool {
	return actor.IsAdmin() || actor.Username == targetUsername
}

// canDelete mirrors canView: admin or the account owner.
func canDelete(actor domain.Principal, targetUsername string) bool {
	return actor.IsAdmin() || actor.Username == targetUsername
}
