package auth

import "context"

// Identity is the authenticated caller, valid for a single request.
type Identity struct {
	UserID int64
}

// identityKey is a private type so no other package can collide with the
// identity context entry.
type identityKey struct{}

// WithIdentity stores the authenticated identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext retrieves the authenticated identity. The second
// return is false when no identity was attached.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
