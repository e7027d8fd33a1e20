package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/chatprobe/internal/config"
	"github.com/daryltucker/chatprobe/internal/engine"
)

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List the models served by the endpoint",
	Long:  `Queries GET /v1/models. Useful to validate the base URL and API key before a run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.APIKey == "" {
			return fmt.Errorf("api_key is required (set %s)", config.EnvAPIKey)
		}

		e := engine.New(cfg)
		fmt.Fprintf(cmd.OutOrStdout(), "Querying %s...\n", cfg.ModelsEndpoint())
		models, err := e.ListModels(cmd.Context())
		if err != nil {
			return err
		}
		for _, m := range models {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", m)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listModelsCmd)
}
