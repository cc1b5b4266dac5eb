// Package wildcard implements the pattern matchers consumed by the
// impersonation allowlists.
//
// A pattern is one of:
//   - "*"                 matches every candidate
//   - "/expr/"            a Go regular expression between slashes
//   - contains '*' or '?' a glob (any-run and single-character wildcards)
//   - anything else       a case-sensitive exact string
//
// Matchers are immutable and safe for concurrent use.
package wildcard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher tests candidate strings against a compiled pattern.
type Matcher interface {
	// Test reports whether candidate matches.
	Test(candidate string) bool
	fmt.Stringer
}

// None matches nothing. It is the lookup default for grantors with no
// allowlist entry, so absence never grants anything.
var None Matcher = noneMatcher{}

// Any matches everything.
var Any Matcher = anyMatcher{}

// From compiles a single pattern.
func From(pattern string) (Matcher, error) {
	switch {
	case pattern == "*":
		return Any, nil
	case len(pattern) > 1 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/"):
		// Regex patterns must match the whole candidate, not a substring.
		re, err := regexp.Compile("^(?:" + pattern[1:len(pattern)-1] + ")$")
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
		}
		return &regexMatcher{pattern: pattern, re: re}, nil
	case strings.ContainsAny(pattern, "*?"):
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
		}
		return &globMatcher{pattern: pattern, g: g}, nil
	default:
		return exactMatcher(pattern), nil
	}
}

// FromList compiles patterns into a single matcher that matches when any
// pattern matches. An empty list yields None.
func FromList(patterns []string) (Matcher, error) {
	switch len(patterns) {
	case 0:
		return None, nil
	case 1:
		return From(patterns[0])
	}
	ms := make(matcherList, 0, len(patterns))
	for _, p := range patterns {
		m, err := From(p)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, nil
}

type noneMatcher struct{}

func (noneMatcher) Test(string) bool { return false }
func (noneMatcher) String() string   { return "<NONE>" }

type anyMatcher struct{}

func (anyMatcher) Test(string) bool { return true }
func (anyMatcher) String() string   { return "*" }

type exactMatcher string

func (m exactMatcher) Test(candidate string) bool { return string(m) == candidate }
func (m exactMatcher) String() string             { return string(m) }

type globMatcher struct {
	pattern string
	g       glob.Glob
}

func (m *globMatcher) Test(candidate string) bool { return m.g.Match(candidate) }
func (m *globMatcher) String() string             { return m.pattern }

type regexMatcher struct {
	pattern string
	re      *regexp.Regexp
}

func (m *regexMatcher) Test(candidate string) bool { return m.re.MatchString(candidate) }
func (m *regexMatcher) String() string             { return m.pattern }

type matcherList []Matcher

func (ms matcherList) Test(candidate string) bool {
	for _, m := range ms {
		if m.Test(candidate) {
			return true
		}
	}
	return false
}

func (ms matcherList) String() string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.String()
	}
	return strings.Join(parts, "|")
}
