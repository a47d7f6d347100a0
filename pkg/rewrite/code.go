package rewrite

import "strings"

var escaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)

// Escape makes s safe to embed in a single-quoted string literal.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Quote returns s as a single-quoted string literal.
func Quote(s string) string {
	return "'" + Escape(s) + "'"
}
