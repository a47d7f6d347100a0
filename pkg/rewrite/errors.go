package rewrite

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a plugin failure.
type ErrorKind int

const (
	// KindTransform means the plugin itself failed.
	KindTransform ErrorKind = iota

	// KindMalformed means the plugin returned edits that cannot be applied:
	// overlapping or out of range replacements, or nodes from a stale unit.
	KindMalformed

	// KindImportConflict means one pass asked for two namespace aliases of
	// the same dependency.
	KindImportConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransform:
		return "transform"
	case KindMalformed:
		return "malformed result"
	case KindImportConflict:
		return "import conflict"
	default:
		return "unknown"
	}
}

var (
	// ErrStaleNode is returned for replacements whose node was parsed from
	// a different version of the unit.
	ErrStaleNode = errors.New("node belongs to a stale unit version")

	// ErrIncompleteReplacement is returned for replacements without a node
	// or a generator.
	ErrIncompleteReplacement = errors.New("replacement needs a node and a generator")

	// ErrPluginPanic wraps a recovered panic from a plugin.
	ErrPluginPanic = errors.New("plugin panicked")
)

// PluginError reports a failure attributed to one plugin.
type PluginError struct {
	PluginID string
	UnitID   string
	Kind     ErrorKind
	Err      error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("%s: plugin %s: %s: %v", e.UnitID, e.PluginID, e.Kind, e.Err)
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

// AsPluginError returns the PluginError in err's chain.
func AsPluginError(err error) (*PluginError, bool) {
	var pe *PluginError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsContractViolation reports whether err is a malformed result or an import
// conflict rather than a failure inside the plugin.
func IsContractViolation(err error) bool {
	pe, ok := AsPluginError(err)
	return ok && pe.Kind != KindTransform
}
