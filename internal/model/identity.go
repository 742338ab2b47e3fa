package model

import "context"

// Role is the caller role supplied by the upstream auth layer.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity is the authenticated caller of a core operation.
type Identity struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the caller has the administrator role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccess reports whether the caller may see an order owned by ownerID.
func (i Identity) CanAccess(ownerID string) bool {
	return i.IsAdmin() || (i.UserID != "" && i.UserID == ownerID)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
