// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/observability"
	"github.com/formpilot/formpilot-cli/internal/profile"
)

// resetForTest resets the process-global state the command layer leans on.
// The command tree itself is rebuilt per execution, but viper and the
// logger are shared across the process.
func resetForTest(t *testing.T) {
	t.Helper()

	viper.Reset()
	// Keep accidental discovery of a real config file out of the tests.
	viper.SetConfigName("a-config-file-that-does-not-exist")

	observability.ResetForTest()
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})

	t.Cleanup(func() {
		viper.Reset()
		observability.ResetForTest()
	})
}

// executeCommand runs a fresh root command tree with the given arguments
// and returns everything it wrote to stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetForTest(t)

	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// createTempConfig writes a config file into the test's temp directory.
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// quietConfigYAML renders a config file that silences log output and
// confines the profile and history paths to the test's temp space.
func quietConfigYAML(profilePath, historyPath string) string {
	historyEnabled := historyPath != ""
	if historyPath == "" {
		historyPath = "unused.db"
	}
	return fmt.Sprintf(`
logger:
  level: fatal
  format: console
profile:
  path: %s
history:
  enabled: %t
  backend: sqlite
  sqlite:
    path: %s
engine:
  page_loads_per_minute: 600000
filler:
  timing:
    settle: 0s
    post_click: 0s
    post_open: 0s
    inter_key: 0s
    inter_strategy: 0s
`, profilePath, historyEnabled, historyPath)
}

// applySnapshotHTML is a small application form: three mappable fields and
// one that no profile path covers.
const applySnapshotHTML = `<html><head><title>Apply - Acme</title></head><body>
<form id="apply" action="/jobs/apply" method="post">
<label for="first">First Name</label><input id="first" name="first_name" type="text">
<label for="last">Last Name</label><input id="last" name="last_name" type="text">
<label for="em">Email</label><input id="em" name="email" type="email" required>
<label for="fav">Favorite Color</label><input id="fav" name="favorite_color" type="text">
</form></body></html>`

// writeSnapshot drops fixture HTML on disk and returns its path, which the
// opener treats as a static target.
func writeSnapshot(t *testing.T, html string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apply.html")
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))
	return path
}

func testProfile() *schemas.UserProfile {
	return &schemas.UserProfile{
		PersonalInfo: schemas.PersonalInfo{
			FirstName: "Avery",
			LastName:  "Kim",
			Email:     "avery.kim@example.com",
			Phone:     "+1 555 0100",
		},
		WorkExperience: []schemas.WorkExperience{
			{Company: "Initech", Title: "Staff Engineer", StartDate: "2021-03-01"},
		},
	}
}

// writeProfile persists the standard test profile and returns its path.
func writeProfile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, profile.Save(path, testProfile()))
	return path
}

// testFillConfig builds a validated config for driving the run cores
// directly, with every path pointed at test-owned locations.
func testFillConfig(t *testing.T, profilePath string) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Profile.Path = profilePath
	cfg.History.Enabled = false
	cfg.Engine.PageLoadsPerMinute = 600000
	cfg.Filler.Timing = config.TimingConfig{}
	require.NoError(t, cfg.Validate())
	return cfg
}
