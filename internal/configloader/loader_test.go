package configloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/tsweave/pkg/config"
	"github.com/yaklabco/tsweave/pkg/rewrite"
)

func testRegistry() *rewrite.Registry {
	r := rewrite.NewRegistry()
	for _, id := range []string{"define", "strip-console"} {
		r.Register(rewrite.Descriptor{ID: id})
	}
	r.RegisterAlias("no-console", "strip-console")
	return r
}

func isolated(dir string) LoadOptions {
	return LoadOptions{
		WorkingDir:         dir,
		IgnoreSystemConfig: true,
		IgnoreUserConfig:   true,
		IgnoreEnv:          true,
		Registry:           testRegistry(),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	result, err := Load(context.Background(), isolated(dir))
	require.NoError(t, err)

	assert.Equal(t, config.PolicyRecoverable, result.Config.Policy)
	assert.Equal(t, config.DefaultExtensions(), result.Config.Extensions)
	assert.True(t, result.Config.Backups.Enabled)
	assert.Empty(t, result.LoadedFrom)
}

func TestLoad_ProjectConfigSearchesUpward(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	writeFile(t, filepath.Join(dir, ".tsweave.yml"), `
policy: fatal
plugins:
  - id: define
    options:
      values:
        DEBUG: "false"
`)
	nested := filepath.Join(dir, "src", "app")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	result, err := Load(context.Background(), isolated(nested))
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, ".tsweave.yml")}, result.LoadedFrom)
	assert.Equal(t, config.PolicyFatal, result.Config.Policy)
	require.Len(t, result.Config.Plugins, 1)
	assert.Equal(t, "define", result.Config.Plugins[0].ID)
}

func TestLoad_SearchStopsAtVCSRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".tsweave.yml"), "policy: fatal\n")
	repo := filepath.Join(dir, "repo")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))

	result, err := Load(context.Background(), isolated(repo))
	require.NoError(t, err)
	assert.Empty(t, result.LoadedFrom)
	assert.Equal(t, config.PolicyRecoverable, result.Config.Policy)
}

func TestLoad_TOMLAndExplicitLayering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	writeFile(t, filepath.Join(dir, "tsweave.toml"), `
policy = "fatal"
ignore = ["vendor/**"]

[[plugins]]
id = "define"
[plugins.options.values]
DEBUG = "false"
`)
	explicit := filepath.Join(dir, "ci.yaml")
	writeFile(t, explicit, `
plugins:
  - id: define
    options:
      values:
        VERSION: '"1.0"'
  - id: no-console
`)

	opts := isolated(dir)
	opts.ExplicitPath = explicit
	result, err := Load(context.Background(), opts)
	require.NoError(t, err)

	cfg := result.Config
	assert.Len(t, result.LoadedFrom, 2)
	assert.Equal(t, config.PolicyFatal, cfg.Policy)
	assert.Equal(t, []string{"vendor/**"}, cfg.Ignore)
	require.Len(t, cfg.Plugins, 2)

	define, ok := cfg.Plugin("define")
	require.True(t, ok)
	values, ok := asMap(define.Options["values"])
	require.True(t, ok)
	assert.Equal(t, "false", values["DEBUG"])
	assert.Equal(t, `"1.0"`, values["VERSION"])

	assert.Equal(t, "strip-console", cfg.Plugins[1].ID)
}

func TestLoad_CLIOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	writeFile(t, filepath.Join(dir, ".tsweave.yaml"), "policy: recoverable\n")

	opts := isolated(dir)
	opts.CLIConfig = &config.Config{
		Policy:         config.PolicyFatal,
		Write:          true,
		Jobs:           3,
		DisablePlugins: []string{"no-console"},
	}
	result, err := Load(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, config.PolicyFatal, result.Config.Policy)
	assert.True(t, result.Config.Write)
	assert.Equal(t, 3, result.Config.Jobs)
	assert.Equal(t, []string{"strip-console"}, result.Config.DisablePlugins)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "policy: [", "parse yaml"},
		{"bad policy", "policy: lenient\n", "invalid policy"},
		{"bad mode", "backups:\n  mode: xdg\n", "invalid backup mode"},
		{"bad glob", "ignore: ['[a-']\n", "invalid glob"},
		{"duplicate plugin", "plugins:\n  - id: strip-console\n  - id: no-console\n", "already listed"},
		{"empty plugin", "plugins:\n  - id: ''\n", "must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
			writeFile(t, filepath.Join(dir, ".tsweave.yml"), tt.content)

			_, err := Load(context.Background(), isolated(dir))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_UnknownPluginWarns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	writeFile(t, filepath.Join(dir, ".tsweave.yml"), "plugins:\n  - id: mystery\n")

	result, err := Load(context.Background(), isolated(dir))
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], `unknown plugin "mystery"`)
}

func TestLoad_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, isolated(t.TempDir()))
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TSWEAVE_POLICY", "fatal")
	t.Setenv("TSWEAVE_JOBS", "4")
	t.Setenv("TSWEAVE_WRITE", "1")
	t.Setenv("TSWEAVE_IGNORE", " a/** , ,b/** ")
	t.Setenv("TSWEAVE_DISABLE", "define")

	cfg := config.NewConfig()
	require.NoError(t, LoadFromEnv(cfg))

	assert.Equal(t, config.PolicyFatal, cfg.Policy)
	assert.Equal(t, 4, cfg.Jobs)
	assert.True(t, cfg.Write)
	assert.Equal(t, []string{"a/**", "b/**"}, cfg.Ignore)
	assert.Equal(t, []string{"define"}, cfg.DisablePlugins)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	t.Setenv("TSWEAVE_JOBS", "many")

	err := LoadFromEnv(config.NewConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TSWEAVE_JOBS")
}

func TestListEnvVars(t *testing.T) {
	t.Parallel()

	vars := ListEnvVars()
	assert.Contains(t, vars, "TSWEAVE_POLICY")
	assert.Contains(t, vars, "TSWEAVE_BACKUPS_MODE")
	assert.Len(t, vars, len(envVars))
}

func TestMerge_PluginOptions(t *testing.T) {
	t.Parallel()

	off := false
	base := &config.Config{Plugins: []config.PluginConfig{
		{ID: "define", Options: map[string]any{"values": map[string]any{"A": "1", "B": "2"}}},
	}}
	override := &config.Config{Plugins: []config.PluginConfig{
		{ID: "define", Enabled: &off, Options: map[string]any{"values": map[any]any{"B": "3"}}},
		{ID: "strip-console"},
	}}

	merged := merge(base, override)

	require.Len(t, merged.Plugins, 2)
	assert.False(t, merged.Plugins[0].IsEnabled())
	assert.Equal(t, map[string]any{"A": "1", "B": "3"}, merged.Plugins[0].Options["values"])
	assert.Equal(t, "strip-console", merged.Plugins[1].ID)

	// base is not modified
	assert.True(t, base.Plugins[0].IsEnabled())
	assert.Equal(t, map[string]any{"A": "1", "B": "2"}, base.Plugins[0].Options["values"])
}

func TestWriteConfigRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Policy = config.PolicyFatal
	cfg.SetPlugin(config.PluginConfig{ID: "define", Options: map[string]any{"values": map[string]any{"DEBUG": "false"}}})

	for _, name := range []string{"out.yml", "out.toml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteConfig(cfg, path))

		loaded, err := LoadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, config.PolicyFatal, loaded.Policy, name)
		_, ok := loaded.Plugin("define")
		assert.True(t, ok, name)
	}
}
