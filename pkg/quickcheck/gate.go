// Package quickcheck provides the cheap textual pre-filter a plugin declares
// so its tree walk is skipped on units that cannot contain its target.
package quickcheck

import (
	"fmt"
	"regexp"
	"strings"
)

// Gate is a plugin's pre-filter. A unit passes when any pattern occurs in
// its text as a substring, or when Regex matches. A Gate with neither
// patterns nor a regex always passes.
type Gate struct {
	// Patterns are literal substrings.
	Patterns []string

	// Regex is an optional compiled expression.
	Regex *regexp.Regexp
}

// Always is the gate of plugins without a pre-filter.
var Always = Gate{}

// Patterns returns a gate over literal substrings.
func Patterns(patterns ...string) Gate {
	return Gate{Patterns: patterns}
}

// Compile returns a gate over expr, which must be a valid RE2 expression.
func Compile(expr string, patterns ...string) (Gate, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Gate{}, fmt.Errorf("compile quick-check %q: %w", expr, err)
	}
	return Gate{Patterns: patterns, Regex: re}, nil
}

// MustCompile is like Compile but panics on an invalid expression.
// It is meant for package-level gates with constant expressions.
func MustCompile(expr string, patterns ...string) Gate {
	g, err := Compile(expr, patterns...)
	if err != nil {
		panic(err)
	}
	return g
}

// Unconditional reports whether the gate passes every text.
func (g Gate) Unconditional() bool {
	return len(g.Patterns) == 0 && g.Regex == nil
}

// Match reports whether text may contain the plugin's target.
// A false result is a guarantee; a true result is only a hint.
func (g Gate) Match(text string) bool {
	if g.Unconditional() {
		return true
	}
	for _, p := range g.Patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return g.Regex != nil && g.Regex.MatchString(text)
}
