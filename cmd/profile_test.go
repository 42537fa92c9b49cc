// File: cmd/profile_test.go
package cmd

import (
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/profile"
)

func TestProfileInitCmd(t *testing.T) {
	t.Run("should write a starter profile at the configured path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile.json")
		configFile := createTempConfig(t, quietConfigYAML(path, ""))

		output, err := executeCommand(t, "--config", configFile, "profile", "init")

		require.NoError(t, err)
		assert.Contains(t, output, "Wrote starter profile to "+path)
		assert.Contains(t, output, "formpilot profile check")

		prof, err := profile.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "Jane", prof.PersonalInfo.FirstName)
	})

	t.Run("should refuse to overwrite an existing profile", func(t *testing.T) {
		path := writeProfile(t)
		configFile := createTempConfig(t, quietConfigYAML(path, ""))

		_, err := executeCommand(t, "--config", configFile, "profile", "init")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
		assert.Contains(t, err.Error(), "--force")

		// The original content is untouched.
		prof, lerr := profile.Load(path)
		require.NoError(t, lerr)
		assert.Equal(t, "Avery", prof.PersonalInfo.FirstName)
	})

	t.Run("should overwrite with the force flag", func(t *testing.T) {
		path := writeProfile(t)
		configFile := createTempConfig(t, quietConfigYAML(path, ""))

		_, err := executeCommand(t, "--config", configFile, "profile", "init", "--force")

		require.NoError(t, err)
		prof, lerr := profile.Load(path)
		require.NoError(t, lerr)
		assert.Equal(t, "Jane", prof.PersonalInfo.FirstName)
	})

	t.Run("should prefer the profile flag over the configured path", func(t *testing.T) {
		configuredPath := filepath.Join(t.TempDir(), "configured.json")
		flagPath := filepath.Join(t.TempDir(), "flagged.json")
		configFile := createTempConfig(t, quietConfigYAML(configuredPath, ""))

		_, err := executeCommand(t, "--config", configFile, "profile", "init", "-p", flagPath)

		require.NoError(t, err)
		assert.FileExists(t, flagPath)
		assert.NoFileExists(t, configuredPath)
	})
}

func TestProfileCheckCmd(t *testing.T) {
	t.Run("should report gaps for a thin profile", func(t *testing.T) {
		path := writeProfile(t)
		configFile := createTempConfig(t, quietConfigYAML(path, ""))

		output, err := executeCommand(t, "--config", configFile, "profile", "check")

		require.NoError(t, err)
		assert.Contains(t, output, "Profile answers")
		assert.Contains(t, output, "fallback:")
	})

	t.Run("should emit the report as JSON", func(t *testing.T) {
		path := writeProfile(t)
		configFile := createTempConfig(t, quietConfigYAML(path, ""))

		output, err := executeCommand(t, "--config", configFile, "profile", "check", "--json")

		require.NoError(t, err)
		var report schemas.CompletenessReport
		require.NoError(t, jsoniter.UnmarshalFromString(output, &report))
		assert.Greater(t, report.Total, 0)
		assert.Less(t, report.Answered, report.Total, "a thin profile cannot answer everything")
		assert.NotEmpty(t, report.Gaps)
		assert.InDelta(t, float64(report.Answered)/float64(report.Total), report.Score, 0.001)
	})

	t.Run("should point at profile init when the profile is missing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.json")
		configFile := createTempConfig(t, quietConfigYAML(path, ""))

		_, err := executeCommand(t, "--config", configFile, "profile", "check")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "formpilot profile init")
	})
}
