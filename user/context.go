package user

import "context"

type userContextKey struct{}

// NewContext stores the authenticated user on the context for downstream
// consumers.
func NewContext(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// FromContext retrieves the authenticated user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*User)
	return u, ok && u != nil
}
