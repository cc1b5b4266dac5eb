// Package settings loads the security configuration tree consumed by the
// authorization core.
//
// The on-disk format is YAML mirroring the dotted key contract:
//
//	security:
//	  unsupported:
//	    inject_user:
//	      enabled: false
//	    inject_admin_user:
//	      enabled: false
//	  authcz:
//	    admin_dn:
//	      - "CN=kirk,OU=client,O=client,L=Test,C=DE"
//	    impersonation_dn:
//	      "CN=spock,OU=client,O=client,L=Test,C=DE":
//	        - worf
//	    rest:
//	      impersonation_users:
//	        "picard":
//	          - worf
//
// Grantor keys under impersonation_dn and impersonation_users are opaque
// map keys; they keep their configured case and may contain dots and
// commas.
package settings

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Dotted keys forming the external configuration contract.
const (
	KeyInjectUserEnabled      = "security.unsupported.inject_user.enabled"
	KeyInjectAdminUserEnabled = "security.unsupported.inject_admin_user.enabled"
	KeyAdminDN                = "security.authcz.admin_dn"
	KeyImpersonationDN        = "security.authcz.impersonation_dn"
	KeyRestImpersonationUsers = "security.authcz.rest.impersonation_users"
)

// Environment overrides for the injection flags, applied on top of the
// file values.
const (
	EnvInjectUserEnabled      = "AUTHCZ_INJECT_USER_ENABLED"
	EnvInjectAdminUserEnabled = "AUTHCZ_INJECT_ADMIN_USER_ENABLED"
)

// Settings is the typed configuration tree.
type Settings struct {
	Security Security `mapstructure:"security"`
}

// Security groups all security.* keys.
type Security struct {
	Unsupported Unsupported `mapstructure:"unsupported"`
	Authcz      Authcz      `mapstructure:"authcz"`
}

// Unsupported holds the user-injection compatibility flags. Both default
// to false.
type Unsupported struct {
	InjectUser      Flag `mapstructure:"inject_user"`
	InjectAdminUser Flag `mapstructure:"inject_admin_user"`
}

// Flag is a bare enabled/disabled toggle.
type Flag struct {
	Enabled bool `mapstructure:"enabled"`
}

// Authcz holds the admin and impersonation configuration.
type Authcz struct {
	// AdminDN lists administrator identities in distinguished-name
	// syntax (or, under the injection compatibility mode, plain
	// usernames).
	AdminDN []string `mapstructure:"admin_dn"`

	// ImpersonationDN maps a grantor distinguished name to the target
	// username patterns it may impersonate.
	ImpersonationDN map[string][]string `mapstructure:"impersonation_dn"`

	Rest Rest `mapstructure:"rest"`
}

// Rest holds the REST-layer impersonation configuration.
type Rest struct {
	// ImpersonationUsers maps a grantor username to the target username
	// patterns it may impersonate.
	ImpersonationUsers map[string][]string `mapstructure:"impersonation_users"`
}

// Default returns an empty configuration: no admins, no impersonation
// grants, both injection flags off.
func Default() *Settings {
	return &Settings{}
}

// Load reads a YAML settings file and applies environment overrides.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}
	applyEnv(cfg)
	return cfg, nil
}

// Parse decodes YAML bytes into Settings. Unknown keys are ignored so the
// core can read a slice of a larger configuration file.
func Parse(data []byte) (*Settings, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return FromMap(raw)
}

// FromMap decodes an untyped configuration tree, as produced by a YAML or
// JSON parser, into Settings.
func FromMap(raw map[string]any) (*Settings, error) {
	cfg := Default()
	if len(raw) == 0 {
		return cfg, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: cfg,
		// Lets "enabled: 1" and single-string pattern lists through,
		// matching how loosely operators write these files.
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays environment variables on the loaded file.
func applyEnv(cfg *Settings) {
	cfg.Security.Unsupported.InjectUser.Enabled = getEnvBool(EnvInjectUserEnabled, cfg.Security.Unsupported.InjectUser.Enabled)
	cfg.Security.Unsupported.InjectAdminUser.Enabled = getEnvBool(EnvInjectAdminUserEnabled, cfg.Security.Unsupported.InjectAdminUser.Enabled)
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
