/*
PURPOSE:
  Defines the root Cobra command for the chatprobe CLI.
  Handles global flags and command initialization.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config.

  Implementation-discovered:
  - Needs to expose Execute() for main.go.
  - Logger setup must happen before any subcommand logs.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/chatprobe/main.go
  - Calls: Child commands (run, list-models)

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands.

RELATED FILES:
  - cmd/chatprobe/main.go
*/

package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/daryltucker/chatprobe/internal/config"
	"github.com/daryltucker/chatprobe/internal/output"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile string
	verbose bool
	logJSON bool

	// Overrides shared by run and list-models.
	baseURLOverride string
	timeoutOverride time.Duration

	rootCmd = &cobra.Command{
		Use:   "chatprobe",
		Short: "Diagnostic harness for OpenAI-style chat completion endpoints",
		Long: `Probes a /v1/chat/completions endpoint in buffered and streamed mode,
reconciles both into the same result records and reports whether the model
actually returns content. Use 'run --help' for probe options.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			output.Setup(cmd.ErrOrStderr(), verbose, logJSON)
		},
	}
)

// Execute executes the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig loads the config file and applies the shared flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if baseURLOverride != "" {
		cfg.BaseURL = baseURLOverride
	}
	if timeoutOverride > 0 {
		cfg.Timeout = timeoutOverride
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./chatprobe.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every received stream frame")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
	rootCmd.PersistentFlags().StringVar(&baseURLOverride, "base-url", "", "endpoint base URL (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeoutOverride, "timeout", 0, "per-request timeout (overrides config)")
}
