package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yaklabco/tsweave/internal/ui/pretty"
	"github.com/yaklabco/tsweave/pkg/rewrite"
)

type pluginsFlags struct {
	json bool
}

// pluginEntry is one plugin in the JSON listing.
type pluginEntry struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases,omitempty"`
}

func newPluginsCommand(global *globalFlags) *cobra.Command {
	flags := &pluginsFlags{}

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the built-in plugins",
		Long: `List the plugins tsweave can run, with their aliases.

Plugins run in the order they are listed under "plugins" in the
configuration file; this listing is alphabetical.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := listPlugins(rewrite.DefaultRegistry)
			if flags.json {
				return writePluginsJSON(cmd.OutOrStdout(), entries)
			}
			color := pretty.IsColorEnabled(global.color, cmd.OutOrStdout())
			writePluginsText(cmd.OutOrStdout(), entries, pretty.NewStyles(color))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.json, "json", false, "print the listing as JSON")
	return cmd
}

func listPlugins(registry *rewrite.Registry) []pluginEntry {
	descriptors := registry.Descriptors()
	entries := make([]pluginEntry, len(descriptors))
	for i, d := range descriptors {
		entries[i] = pluginEntry{ID: d.ID, Description: d.Description, Aliases: registry.AliasesOf(d.ID)}
	}
	return entries
}

func writePluginsJSON(w io.Writer, entries []pluginEntry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode plugins: %w", err)
	}
	return nil
}

func writePluginsText(w io.Writer, entries []pluginEntry, styles *pretty.Styles) {
	width := 0
	for _, e := range entries {
		width = max(width, len(e.ID))
	}
	for _, e := range entries {
		line := styles.PluginID.Render(rpad(e.ID, width)) + "  " + e.Description
		if len(e.Aliases) > 0 {
			line += styles.Dim.Render(" (alias: " + strings.Join(e.Aliases, ", ") + ")")
		}
		_, _ = fmt.Fprintln(w, line)
	}
}
