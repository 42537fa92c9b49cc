// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ctxKey scopes context values owned by this package.
type ctxKey string

const configKey ctxKey = "config"

// NewRootCommand assembles a fresh command tree. Building a new tree per
// execution keeps flag state from leaking between runs, which matters for
// the tests that execute commands repeatedly.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "formpilot",
		Short: "FormPilot detects job application forms and fills them from a stored profile.",
		// Version is dynamically set at build time. See cmd/version.go.
		Version: Version,
		// Runtime failures should not dump the usage block.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Runs before any command, setting up config and logging.
			cfg, err := initializeConfig(cfgFile)
			if err != nil {
				// Initialize a fallback logger so the failure is still reported
				// through the normal channel.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "formpilot"})
				return err
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting formpilot", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newFillCmd(),
		newDetectCmd(),
		newProfileCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI under a signal-aware context. Interrupts cancel the
// context so in-flight fill passes stop at the next field boundary and
// still persist their partial reports.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := NewRootCommand().ExecuteContext(ctx)
	observability.Sync()
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		// Graceful shutdown; partial results were already reported.
		return
	}
	observability.GetLogger().Error("Command execution failed", zap.Error(err))
	os.Exit(1)
}

// initializeConfig reads the config file and environment, layers defaults
// underneath, and returns the validated result.
func initializeConfig(cfgFile string) (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.formpilot")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	config.SetDefaults(viper.GetViper())

	viper.SetEnvPrefix("FORMPILOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars.
	}

	return config.NewConfigFromViper(viper.GetViper())
}

// getConfigFromContext retrieves the config stashed by the root command's
// PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration missing from command context")
	}
	return cfg, nil
}
