// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot-cli/internal/config"
)

func TestRootCmd_VersionFlag(t *testing.T) {
	output, err := executeCommand(t, "--version")

	require.NoError(t, err)
	assert.Contains(t, output, Version)
}

func TestRootCmd_NoArgs(t *testing.T) {
	output, err := executeCommand(t)

	require.NoError(t, err)
	assert.Contains(t, output, "FormPilot detects job application forms")
	for _, sub := range []string{"fill", "detect", "profile", "history", "version"} {
		assert.Contains(t, output, sub, "help should list the %s subcommand", sub)
	}
}

func TestRootCmd_BadConfigFile(t *testing.T) {
	_, err := executeCommand(t, "--config", "/does/not/exist.yaml", "history")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestRootCmd_InvalidConfigValues(t *testing.T) {
	configFile := createTempConfig(t, `
engine:
  max_concurrent_targets: 0
`)

	_, err := executeCommand(t, "--config", configFile, "history")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_targets")
}

func TestConfigFlagOverride(t *testing.T) {
	resetForTest(t)

	profilePath := writeProfile(t)
	configFile := createTempConfig(t, fmt.Sprintf(`
logger:
  level: fatal
  format: console
profile:
  path: %s
history:
  enabled: false
engine:
  page_loads_per_minute: 600000
  field_timeout: 45s
`, profilePath))

	root := NewRootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)

	var fillCmd *cobra.Command
	for _, c := range root.Commands() {
		if c.Use == "fill [targets...]" {
			fillCmd = c
			break
		}
	}
	require.NotNil(t, fillCmd)

	// Intercept RunE so the command's config plumbing runs without an
	// actual fill pass. The interception mirrors the real RunE's
	// re-unmarshal step so the flag bindings are observable.
	var captured *config.Config
	fillCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if err := viper.Unmarshal(cfg); err != nil {
			return err
		}
		captured = cfg
		return nil
	}

	root.SetArgs([]string{"--config", configFile, "fill", "--dry-run", "--concurrency", "4", "ignored.html"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.NotNil(t, captured)

	// Flags override the file; file values not overridden still apply.
	assert.True(t, captured.Engine.DryRun)
	assert.Equal(t, 4, captured.Engine.MaxConcurrentTargets)
	assert.Equal(t, 45*time.Second, captured.Engine.FieldTimeout)
	assert.Equal(t, float64(600000), captured.Engine.PageLoadsPerMinute)
	assert.Equal(t, profilePath, captured.Profile.Path)
}

func TestFillCmd_RequiredArgs(t *testing.T) {
	output, err := executeCommand(t, "fill")

	require.Error(t, err)
	assert.Contains(t, output, "requires at least 1 arg(s)")
}

func TestDetectCmd_RequiredArgs(t *testing.T) {
	_, err := executeCommand(t, "detect")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestGetConfigFromContext(t *testing.T) {
	t.Run("should fail on a bare context", func(t *testing.T) {
		_, err := getConfigFromContext(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration missing")
	})

	t.Run("should return the stashed config", func(t *testing.T) {
		want := config.NewDefaultConfig()
		ctx := context.WithValue(context.Background(), configKey, want)

		got, err := getConfigFromContext(ctx)
		require.NoError(t, err)
		assert.Same(t, want, got)
	})
}
