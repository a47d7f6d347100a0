package plugins

import "github.com/yaklabco/tsweave/pkg/rewrite"

// RegisterAll registers all built-in plugins with the given registry.
func RegisterAll(registry *rewrite.Registry) {
	registry.Register(rewrite.Descriptor{
		ID:          DefineID,
		Description: "Replace free identifiers and member paths such as __DEV__ or process.env.NODE_ENV with literal text.",
		New:         NewDefine,
	})
	registry.Register(rewrite.Descriptor{
		ID:          AutoImportID,
		Description: "Import free names from the modules configured for them.",
		New:         NewAutoImport,
	})
	registry.Register(rewrite.Descriptor{
		ID:          RuntimeHelpersID,
		Description: "Supply __assign, __spread and __rest to units that call them without a declaration.",
		New:         NewRuntimeHelpers,
	})
	registry.Register(rewrite.Descriptor{
		ID:          StripConsoleID,
		Description: "Remove console calls used as statements.",
		New:         NewStripConsole,
	})
}

// init registers all built-in plugins with the default registry.
//
//nolint:gochecknoinits // Init is intentional for automatic plugin registration
func init() {
	RegisterAll(rewrite.DefaultRegistry)
	rewrite.DefaultRegistry.RegisterAlias("no-console", StripConsoleID)
}
