package booking

import "context"

// UserDirectory exposes the single role lookup the engine needs.
type UserDirectory interface {
	IsAdmin(ctx context.Context, userID uint64) (bool, error)
}

// RoleAuthorizer grants access to the ticket holder and to admins.
type RoleAuthorizer struct {
	users UserDirectory
}

func NewRoleAuthorizer(users UserDirectory) *RoleAuthorizer {
	return &RoleAuthorizer{users: users}
}

func (a *RoleAuthorizer) IsOwnerOrAdmin(ctx context.Context, userID, holderID uint64) (bool, error) {
	if userID == holderID {
		return true, nil
	}
	return a.users.IsAdmin(ctx, userID)
}
