package reporter

import (
	"fmt"

	"github.com/yaklabco/tsweave/pkg/config"
)

// Format represents an output format.
type Format string

// Output formats supported by the reporter.
const (
	FormatText    Format = Format(config.FormatText)
	FormatTable   Format = Format(config.FormatTable)
	FormatJSON    Format = Format(config.FormatJSON)
	FormatDiff    Format = Format(config.FormatDiff)
	FormatSummary Format = Format(config.FormatSummary)
)

// ParseFormat parses a format string, returning an error for unknown formats.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatText, nil
	}
	if f := config.OutputFormat(s); f.IsValid() {
		return Format(f), nil
	}
	return "", fmt.Errorf("unknown format %q; valid formats: text, table, json, diff, summary", s)
}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}
