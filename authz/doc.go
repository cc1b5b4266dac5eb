// Package authz provides the trust-boundary authorization decisions for
// the security layer: whether an authenticated identity is an
// administrator, and whether one identity may impersonate another.
//
// The core type is AdminDNs. It is built once from settings at startup and
// is read-only afterwards:
//
//   - Administrator identities are distinguished names compared in
//     canonical form, never as raw strings. Under the unsupported
//     user-injection compatibility mode, entries that do not parse as
//     distinguished names are kept as plain admin usernames instead.
//   - Impersonation allowlists map a grantor (a distinguished name for
//     certificate-authenticated callers, a plain username for REST
//     callers) to a wildcard matcher over permitted target usernames.
//
// Every query fails closed: malformed input, absent configuration, and
// missing grantors all answer false. No query ever returns an error.
//
// Request flow:
//
//	settings.Load → authz.NewAdminDNs → IsAdmin / IsAdminDN /
//	IsRestImpersonationAllowed / IsDNImpersonationAllowed
//
// The key design principle is that all lookup structures are frozen before
// NewAdminDNs returns, so concurrent queries from any number of request
// goroutines need no locking.
package authz
