// Package user describes the authenticated identity consumed by the
// authorization core, and its propagation through request contexts.
package user

// User captures an authenticated identity.
//
// This struct is IMMUTABLE after construction. It is produced once by the
// authentication pipeline and then shared freely across request-handling
// goroutines; nothing in this module mutates it.
type User struct {
	// Name is the username, or the subject distinguished name string for
	// certificate-authenticated callers.
	Name string

	// Roles lists the backend role names resolved during authentication.
	// Not consulted for the admin decision; carried for downstream
	// permission evaluation.
	Roles []string

	// Attributes carries optional identity metadata (e.g. claims copied
	// from the authenticating token).
	Attributes map[string]string

	// Injected marks identities established by the in-process injection
	// mechanism rather than by verified credentials. Injected identities
	// only ever gain admin standing under the dual compatibility flags.
	Injected bool
}

// New returns a User with the given name and no roles or attributes.
func New(name string) *User {
	return &User{Name: name}
}

// NewInjected returns an injected User, as the in-process injection
// mechanism would construct it.
func NewInjected(name string) *User {
	return &User{Name: name, Injected: true}
}

// String returns the identity's name.
func (u *User) String() string {
	if u == nil {
		return ""
	}
	return u.Name
}
