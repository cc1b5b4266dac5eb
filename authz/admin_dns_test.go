package authz

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironvale/authcz/settings"
	"github.com/ironvale/authcz/user"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newOracle(t *testing.T, mutate func(*settings.Settings)) *AdminDNs {
	t.Helper()
	cfg := settings.Default()
	if mutate != nil {
		mutate(cfg)
	}
	return NewAdminDNs(cfg, quietLogger())
}

func TestIsAdminDN_CanonicalMatch(t *testing.T) {
	a := newOracle(t, func(cfg *settings.Settings) {
		cfg.Security.Authcz.AdminDN = []string{"CN=admin,OU=ops,DC=example,DC=com"}
	})

	// Component-wise canonical equality, not string equality.
	assert.True(t, a.IsAdminDN("CN=admin,OU=ops,DC=example,DC=com"))
	assert.True(t, a.IsAdminDN("cn=admin, ou=ops, dc=example, dc=com"))
	assert.True(t, a.IsAdminDN("CN=Admin, OU=Ops, DC=Example, DC=Com"))

	assert.False(t, a.IsAdminDN("cn=other,ou=ops,dc=example,dc=com"))
	assert.False(t, a.IsAdminDN("cn=admin,ou=ops,dc=example,dc=org"))
	// A prefix of an admin DN is a different identity.
	assert.False(t, a.IsAdminDN("cn=admin,ou=ops"))
}

func TestIsAdminDN_EmptyAndMalformed(t *testing.T) {
	a := newOracle(t, func(cfg *settings.Settings) {
		cfg.Security.Authcz.AdminDN = []string{"cn=admin,dc=example,dc=com"}
	})

	// No-throw contract: every bad input is simply not an admin.
	assert.False(t, a.IsAdminDN(""))
	assert.False(t, a.IsAdminDN("   "))
	assert.False(t, a.IsAdminDN("not a dn"))
	assert.False(t, a.IsAdminDN("cn=admin,"))
}

// TestIsAdminDN_ParseCache exercises repeated queries through the cache,
// including cached negative results.
func TestIsAdminDN_ParseCache(t *testing.T) {
	a := newOracle(t, func(cfg *settings.Settings) {
		cfg.Security.Authcz.AdminDN = []string{"cn=admin,dc=example,dc=com"}
	})

	for i := 0; i < 3; i++ {
		assert.True(t, a.IsAdminDN("CN=Admin,DC=Example,DC=Com"))
		assert.False(t, a.IsAdminDN("garbage"))
	}
}

func TestNewAdminDNs_DropsUnparseableAdminDN(t *testing.T) {
	a := newOracle(t, func(cfg *settings.Settings) {
		cfg.Security.Authcz.AdminDN = []string{
			"cn=admin,dc=example,dc=com",
			"service-bot", // not a DN; flags are off, so dropped
		}
	})

	stats := a.Stats()
	assert.Equal(t, 1, stats.AdminDNs)
	assert.Equal(t, 0, stats.AdminUsernames)

	assert.False(t, a.IsAdmin(user.NewInjected("service-bot")))
	assert.False(t, a.IsAdmin(user.New("service-bot")))
}

// TestIsAdmin_InjectedUsernameFallback covers the dual-flag compatibility
// mode: a non-DN admin entry becomes a literal admin username honored only
// for injected identities.
func TestIsAdmin_InjectedUsernameFallback(t *testing.T) {
	a := newOracle(t, func(cfg *settings.Settings) {
		cfg.Security.Unsupported.InjectUser.Enabled = true
		cfg.Security.Unsupported.InjectAdminUser.Enabled = true
		cfg.Security.Authcz.AdminDN = []string{"service-bot"}
	})

	stats := a.Stats()
	assert.Equal(t, 0, stats.AdminDNs)
	assert.Equal(t, 1, stats.AdminUsernames)

	assert.True(t, a.IsAdmin(user.NewInjected("service-bot")))
	assert.False(t, a.IsAdmin(user.New("service-bot")))
	assert.False(t, a.IsAdmin(user.NewInjected("other-bot")))
}

// TestIsAdmin_DualFlagGate verifies the exact boolean combination: either
// flag alone is not enough, at load time or at query time.
func TestIsAdmin_DualFlagGate(t *testing.T) {
	tests := []struct {
		name            string
		injectUser      bool
		injectAdminUser bool
	}{
		{name: "both disabled", injectUser: false, injectAdminUser: false},
		{name: "only inject_user", injectUser: true, injectAdminUser: false},
		{name: "only inject_admin_user", injectUser: false, injectAdminUser: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newOracle(t, func(cfg *settings.Settings) {
				cfg.Security.Unsupported.InjectUser.Enabled = tt.injectUser
				cfg.Security.Unsupported.InjectAdminUser.Enabled = tt.injectAdminUser
				cfg.Security.Authcz.AdminDN = []string{"service-bot"}
			})

			// The entry is dropped rather than reclassified, so even an
			// injected identity with the right name is not an admin.
			assert.Equal(t, 0, a.Stats().AdminUsernames)
			assert.False(t, a.IsAdmin(user.NewInjected("service-bot")))
		})
	}
}

func TestIsAdmin_DNTakesPriority(t *testing.T) {
	a := newOracle(t, func(cfg *settings.Settings) {
		cfg.Security.Authcz.AdminDN = []string{"cn=admin,dc=example,dc=com"}
	})

	// A certificate-authenticated admin needs no injection flags.
	assert.True(t, a.IsAdmin(user.New("CN=Admin,DC=Example,DC=Com")))
	assert.False(t, a.IsAdmin(user.New("cn=nobody,dc=example,dc=com")))
}

func TestIsAdmin_NilUser(t *testing.T) {
	a := newOracle(t, nil)
	assert.False(t, a.IsAdmin(nil))
}

func TestIsRestImpersonationAllowed(t *testing.T) {
	a := newOracle(t, func(cfg *settings.Settings) {
		cfg.Security.Authcz.Rest.ImpersonationUsers = map[string][]string{
			"alice": {"bob*", "carol"},
		}
	})

	assert.True(t, a.IsRestImpersonationAllowed("alice", "bob-2"))
	assert.True(t, a.IsRestImpersonationAllowed("alice", "carol"))
	assert.False(t, a.IsRestImpersonationAllowed("alice", "dave"))

	// Grantors without an entry get the matches-nothing matcher.
	assert.False(t, a.IsRestImpersonationAllowed("eve", "bob"))
	assert.False(t, a.IsRestImpersonationAllowed("eve", ""))

	// Absent grantor is always denied.
	assert.False(t, a.IsRestImpersonationAllowed("", "bob"))
}

func TestIsRestImpersonationAllowed_CaseSensitiveGrantor(t *testing.T) {
	a := newOracle(t, func(cfg *settings.Settings) {
		cfg.Security.Authcz.Rest.ImpersonationUsers = map[string][]string{
			"alice": {"*"},
		}
	})

	// REST grantors are plain usernames, compared exactly.
	assert.True(t, a.IsRestImpersonationAllowed("alice", "anyone"))
	assert.False(t, a.IsRestImpersonationAllowed("Alice", "anyone"))
}

func TestIsDNImpersonationAllowed(t *testing.T) {
	a := newOracle(t, func(cfg *settings.Settings) {
		cfg.Security.Authcz.ImpersonationDN = map[string][]string{
			"CN=spock,OU=client,O=client,L=Test,C=DE": {"worf"},
		}
	})

	// Grantor DNs compare canonically, like admin DNs.
	assert.True(t, a.IsDNImpersonationAllowed("CN=spock,OU=client,O=client,L=Test,C=DE", "worf"))
	assert.True(t, a.IsDNImpersonationAllowed("cn=spock, ou=client, o=client, l=test, c=de", "worf"))

	assert.False(t, a.IsDNImpersonationAllowed("CN=spock,OU=client,O=client,L=Test,C=DE", "kirk"))
	assert.False(t, a.IsDNImpersonationAllowed("cn=mccoy,ou=client,o=client,l=test,c=de", "worf"))
	assert.False(t, a.IsDNImpersonationAllowed("not a dn", "worf"))
	assert.False(t, a.IsDNImpersonationAllowed("", "worf"))
}

func TestNewAdminDNs_DropsUnparseableImpersonationGrantor(t *testing.T) {
	a := newOracle(t, func(cfg *settings.Settings) {
		cfg.Security.Authcz.ImpersonationDN = map[string][]string{
			"not a dn": {"worf"},
			"cn=spock,ou=client,o=client,l=test,c=de": {"worf"},
		}
	})

	// No username fallback for impersonation grantors, regardless of flags.
	assert.Equal(t, 1, a.Stats().DNImpersonations)
	assert.False(t, a.IsDNImpersonationAllowed("not a dn", "worf"))
}

func TestNewAdminDNs_DropsEntriesWithInvalidPatterns(t *testing.T) {
	a := newOracle(t, func(cfg *settings.Settings) {
		cfg.Security.Authcz.ImpersonationDN = map[string][]string{
			"cn=spock,ou=client,o=client,l=test,c=de": {"/worf[/"},
		}
		cfg.Security.Authcz.Rest.ImpersonationUsers = map[string][]string{
			"alice": {"/bob[/"},
			"carol": {"dave"},
		}
	})

	stats := a.Stats()
	assert.Equal(t, 0, stats.DNImpersonations)
	assert.Equal(t, 1, stats.RestImpersonations)

	// Dropped entries grant nothing.
	assert.False(t, a.IsDNImpersonationAllowed("cn=spock,ou=client,o=client,l=test,c=de", "worf"))
	assert.False(t, a.IsRestImpersonationAllowed("alice", "bob"))
	assert.True(t, a.IsRestImpersonationAllowed("carol", "dave"))
}

func TestNewAdminDNs_NilArguments(t *testing.T) {
	a := NewAdminDNs(nil, nil)
	require.NotNil(t, a)

	assert.False(t, a.IsAdmin(user.New("anyone")))
	assert.False(t, a.IsAdminDN("cn=admin,dc=example,dc=com"))
	assert.False(t, a.IsRestImpersonationAllowed("alice", "bob"))
	assert.False(t, a.IsDNImpersonationAllowed("cn=a,dc=b", "bob"))
}

// TestNewAdminDNs_FromParsedSettings runs the full path from YAML to
// decisions, mirroring how a server wires the oracle at startup.
func TestNewAdminDNs_FromParsedSettings(t *testing.T) {
	cfg, err := settings.Parse([]byte(`
security:
  authcz:
    admin_dn:
      - "CN=admin,OU=ops,DC=example,DC=com"
    impersonation_dn:
      "CN=spock,OU=client,O=client,L=Test,C=DE":
        - worf
    rest:
      impersonation_users:
        "alice":
          - "bob*"
`))
	require.NoError(t, err)

	a := NewAdminDNs(cfg, quietLogger())

	assert.True(t, a.IsAdminDN("cn=admin, ou=ops, dc=example, dc=com"))
	assert.True(t, a.IsDNImpersonationAllowed("cn=spock,ou=client,o=client,l=test,c=de", "worf"))
	assert.True(t, a.IsRestImpersonationAllowed("alice", "bob-2"))
	assert.False(t, a.IsRestImpersonationAllowed("alice", "dave"))
}

// TestAdminDNs_ConcurrentQueries hammers all query paths from many
// goroutines; the oracle is immutable after construction, so this is
// expected to race-detect clean.
func TestAdminDNs_ConcurrentQueries(t *testing.T) {
	a := newOracle(t, func(cfg *settings.Settings) {
		cfg.Security.Authcz.AdminDN = []string{"cn=admin,dc=example,dc=com"}
		cfg.Security.Authcz.Rest.ImpersonationUsers = map[string][]string{
			"alice": {"bob*"},
		}
	})

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				a.IsAdminDN("CN=Admin,DC=Example,DC=Com")
				a.IsAdminDN("garbage")
				a.IsAdmin(user.New("cn=admin,dc=example,dc=com"))
				a.IsRestImpersonationAllowed("alice", "bob-2")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
