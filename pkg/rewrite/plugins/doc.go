// Package plugins provides the built-in rewrite plugins for tsweave.
//
//   - define: replaces free identifiers and member paths with literal text
//   - auto-import: imports free names from configured modules
//   - runtime-helpers: supplies helper functions a unit calls but never declares
//   - strip-console: removes console calls used as statements
//
// Every plugin is idempotent: running it on its own output changes nothing.
package plugins
