package authz

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ironvale/authcz/dn"
	"github.com/ironvale/authcz/settings"
	"github.com/ironvale/authcz/user"
	"github.com/ironvale/authcz/wildcard"
)

// parseCacheSize bounds the cache of distinguished-name parse results on
// the query path. Query-time names repeat heavily (one per authenticated
// client certificate), so a small cache absorbs nearly all reparsing.
const parseCacheSize = 1024

// parseResult caches both successful and failed parses; a name that failed
// to parse once will fail every time.
type parseResult struct {
	canonical string
	ok        bool
}

// AdminDNs answers the two trust-boundary questions: is this identity an
// administrator, and may this identity impersonate that username.
//
// All fields are populated by NewAdminDNs and never mutated afterwards.
// The struct is safe for unbounded concurrent use.
type AdminDNs struct {
	log *slog.Logger

	// adminDNs is keyed by canonical DN form; values keep the configured
	// spelling for logs.
	adminDNs map[string]dn.DN

	// adminUsernames holds admin_dn entries reclassified as literal
	// usernames under the dual injection flags.
	adminUsernames map[string]struct{}

	// dnImpersonations is keyed by the grantor's canonical DN form.
	dnImpersonations map[string]wildcard.Matcher

	// restImpersonations is keyed by the grantor's literal username.
	restImpersonations map[string]wildcard.Matcher

	injectUserEnabled      bool
	injectAdminUserEnabled bool

	parseCache *lru.Cache[string, parseResult]
}

// NewAdminDNs builds the oracle from settings. Construction never fails:
// malformed entries are dropped (or, under the injection compatibility
// mode, reclassified as plain admin usernames) and logged as warnings.
//
// A nil logger falls back to slog.Default().
func NewAdminDNs(cfg *settings.Settings, logger *slog.Logger) *AdminDNs {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = settings.Default()
	}

	a := &AdminDNs{
		log:                logger,
		adminDNs:           make(map[string]dn.DN),
		adminUsernames:     make(map[string]struct{}),
		dnImpersonations:   make(map[string]wildcard.Matcher),
		restImpersonations: make(map[string]wildcard.Matcher),
	}
	// lru.New only fails for a non-positive size.
	a.parseCache, _ = lru.New[string, parseResult](parseCacheSize)

	sec := cfg.Security
	a.injectUserEnabled = sec.Unsupported.InjectUser.Enabled
	a.injectAdminUserEnabled = sec.Unsupported.InjectAdminUser.Enabled

	for _, raw := range sec.Authcz.AdminDN {
		parsed, err := dn.Parse(raw)
		if err != nil {
			if a.injectUserEnabled && a.injectAdminUserEnabled {
				logger.Debug("admin_dn entry is not a distinguished name, admin user injection enabled, registering as admin username", "name", raw)
				a.adminUsernames[raw] = struct{}{}
			} else {
				logger.Warn("dropping unparseable admin_dn entry", "dn", raw, "error", err)
			}
			continue
		}
		logger.Debug("registered admin dn", "dn", parsed.String())
		a.adminDNs[parsed.Canonical()] = parsed
	}

	for rawGrantor, patterns := range sec.Authcz.ImpersonationDN {
		grantor, err := dn.Parse(rawGrantor)
		if err != nil {
			// No username fallback here: impersonation grantors in this
			// map must be distinguished names.
			logger.Warn("dropping impersonation_dn entry with unparseable grantor", "dn", rawGrantor, "error", err)
			continue
		}
		m, err := wildcard.FromList(patterns)
		if err != nil {
			logger.Warn("dropping impersonation_dn entry with invalid pattern", "dn", rawGrantor, "error", err)
			continue
		}
		a.dnImpersonations[grantor.Canonical()] = m
	}

	for grantor, patterns := range sec.Authcz.Rest.ImpersonationUsers {
		m, err := wildcard.FromList(patterns)
		if err != nil {
			logger.Warn("dropping rest impersonation entry with invalid pattern", "user", grantor, "error", err)
			continue
		}
		a.restImpersonations[grantor] = m
	}

	logger.Debug("loaded authorization state",
		"admin_dns", len(a.adminDNs),
		"admin_usernames", len(a.adminUsernames),
		"dn_impersonations", len(a.dnImpersonations),
		"rest_impersonations", len(a.restImpersonations))

	return a
}

// IsAdmin reports whether u is a privileged administrator identity.
//
// The distinguished-name check always takes priority. The plain-username
// fallback applies only to injected identities, and only when both
// injection flags are enabled.
func (a *AdminDNs) IsAdmin(u *user.User) bool {
	if u == nil {
		return false
	}
	if a.IsAdminDN(u.Name) {
		return true
	}
	if a.injectUserEnabled && a.injectAdminUserEnabled && u.Injected {
		_, ok := a.adminUsernames[u.Name]
		return ok
	}
	return false
}

// IsAdminDN reports whether raw names a configured administrator.
// Empty and malformed input answer false; parse failure is never an error
// at query time.
func (a *AdminDNs) IsAdminDN(raw string) bool {
	canonical, ok := a.canonicalFor(raw)
	if !ok {
		return false
	}
	_, isAdmin := a.adminDNs[canonical]
	a.log.Debug("checked principal against admin set", "dn", raw, "admin", isAdmin)
	return isAdmin
}

// IsRestImpersonationAllowed reports whether the REST-layer grantor may
// impersonate the target username.
func (a *AdminDNs) IsRestImpersonationAllowed(grantor, target string) bool {
	if grantor == "" {
		return false
	}
	m, ok := a.restImpersonations[grantor]
	if !ok {
		m = wildcard.None
	}
	return m.Test(target)
}

// IsDNImpersonationAllowed reports whether the certificate-authenticated
// grantor, identified by its distinguished name, may impersonate the
// target username.
func (a *AdminDNs) IsDNImpersonationAllowed(grantorDN, target string) bool {
	canonical, ok := a.canonicalFor(grantorDN)
	if !ok {
		return false
	}
	m, found := a.dnImpersonations[canonical]
	if !found {
		m = wildcard.None
	}
	return m.Test(target)
}

// Stats reports the sizes of the loaded lookup structures.
func (a *AdminDNs) Stats() Stats {
	return Stats{
		AdminDNs:           len(a.adminDNs),
		AdminUsernames:     len(a.adminUsernames),
		DNImpersonations:   len(a.dnImpersonations),
		RestImpersonations: len(a.restImpersonations),
	}
}

// Stats describes a constructed AdminDNs.
type Stats struct {
	AdminDNs           int
	AdminUsernames     int
	DNImpersonations   int
	RestImpersonations int
}

// canonicalFor resolves raw to its canonical DN form through the parse
// cache. The second return is false for empty or malformed input.
func (a *AdminDNs) canonicalFor(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if res, ok := a.parseCache.Get(raw); ok {
		return res.canonical, res.ok
	}
	var res parseResult
	if parsed, err := dn.Parse(raw); err == nil {
		res = parseResult{canonical: parsed.Canonical(), ok: true}
	}
	a.parseCache.Add(raw, res)
	return res.canonical, res.ok
}
