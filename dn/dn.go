// Package dn parses RFC 4514 distinguished names into an immutable
// canonical form suitable for equality checks and map lookups.
//
// Two names are equal when their canonical component sequences are equal:
// attribute types and values compare case-insensitively, whitespace between
// components is insignificant, and escaping is normalized. Byte-for-byte
// string equality of the raw input is never used.
package dn

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	ldap "github.com/go-ldap/ldap/v3"
)

// ErrEmpty reports an empty or all-whitespace input.
var ErrEmpty = errors.New("empty distinguished name")

// ParseError reports a raw name that could not be parsed as an RFC 4514
// distinguished name. Callers decide disposition; Parse never logs.
type ParseError struct {
	// Raw is the offending input string.
	Raw string
	// Err is the underlying cause.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse distinguished name %q: %v", e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Attribute is a single (type, value) pair within an RDN, in canonical
// (lower-cased, unescaped) form.
type Attribute struct {
	Type  string
	Value string
}

// RDN is one relative distinguished name: one or more attributes.
// Multi-valued RDNs (joined with '+' in the string form) carry their
// attributes sorted by canonical rendering.
type RDN struct {
	Attributes []Attribute
}

// DN is a parsed distinguished name. The zero value is no name at all;
// non-zero values are immutable.
type DN struct {
	raw       string
	canonical string
	rdns      []RDN
}

// Parse parses raw into a DN. The returned DN's canonical form drives
// Equal and is the correct map key for DN-keyed lookups.
//
// Parse is pure: it has no side effects and never logs.
func Parse(raw string) (DN, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DN{}, &ParseError{Raw: raw, Err: ErrEmpty}
	}

	parsed, err := ldap.ParseDN(trimmed)
	if err != nil {
		return DN{}, &ParseError{Raw: raw, Err: err}
	}
	if len(parsed.RDNs) == 0 {
		return DN{}, &ParseError{Raw: raw, Err: ErrEmpty}
	}

	rdns := make([]RDN, 0, len(parsed.RDNs))
	parts := make([]string, 0, len(parsed.RDNs))
	for _, r := range parsed.RDNs {
		if len(r.Attributes) == 0 {
			return DN{}, &ParseError{Raw: raw, Err: errors.New("empty RDN component")}
		}
		attrs := make([]Attribute, 0, len(r.Attributes))
		rendered := make([]string, 0, len(r.Attributes))
		for _, a := range r.Attributes {
			typ := strings.ToLower(strings.TrimSpace(a.Type))
			if typ == "" {
				return DN{}, &ParseError{Raw: raw, Err: errors.New("empty attribute type")}
			}
			val := strings.ToLower(strings.TrimSpace(a.Value))
			attrs = append(attrs, Attribute{Type: typ, Value: val})
			rendered = append(rendered, typ+"="+ldap.EscapeDN(val))
		}
		// Attribute order within a multi-valued RDN is not significant
		// for equality, so the canonical form sorts it.
		sort.Sort(&rdnSorter{attrs: attrs, rendered: rendered})
		rdns = append(rdns, RDN{Attributes: attrs})
		parts = append(parts, strings.Join(rendered, "+"))
	}

	return DN{
		raw:       trimmed,
		canonical: strings.Join(parts, ","),
		rdns:      rdns,
	}, nil
}

// MustParse is Parse for static inputs; it panics on error.
func MustParse(raw string) DN {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the original (trimmed) input string, not the canonical
// form, so configured names keep their configured spelling in logs.
func (d DN) String() string { return d.raw }

// Canonical returns the canonical rendering used for equality and as the
// key in DN-keyed maps.
func (d DN) Canonical() string { return d.canonical }

// RDNs returns the canonical components in original order, leaf first.
// The returned slice is a copy.
func (d DN) RDNs() []RDN {
	out := make([]RDN, len(d.rdns))
	copy(out, d.rdns)
	return out
}

// IsZero reports whether d is the zero DN (no name).
func (d DN) IsZero() bool { return d.canonical == "" }

// Equal reports canonical equality with other.
func (d DN) Equal(other DN) bool {
	return !d.IsZero() && d.canonical == other.canonical
}

// rdnSorter keeps the attribute slice and its canonical renderings in the
// same order while sorting by rendering.
type rdnSorter struct {
	attrs    []Attribute
	rendered []string
}

func (s *rdnSorter) Len() int           { return len(s.rendered) }
func (s *rdnSorter) Less(i, j int) bool { return s.rendered[i] < s.rendered[j] }
func (s *rdnSorter) Swap(i, j int) {
	s.attrs[i], s.attrs[j] = s.attrs[j], s.attrs[i]
	s.rendered[i], s.rendered[j] = s.rendered[j], s.rendered[i]
}
