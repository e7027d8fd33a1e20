/*
PURPOSE:
  Defines the 'run' subcommand.
  Runs the probe set, optionally a comparison run, and prints the report.

REQUIREMENTS:
  User-specified:
  - Buffered run by default, streamed run with --stream.
  - Compare buffered against streamed, or one model against another.

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config.
  - The comparison choice is a flag, not an interactive question.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Run(), internal/report
  - Uses: internal/config, internal/output

ERROR HANDLING:
  - Returns error if config load or validation fails.
  - Probe failures are part of the report, not command errors.

USAGE:
  chatprobe run --model gpt-4o-mini --compare-stream

RELATED FILES:
  - internal/cli/root.go
*/

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daryltucker/chatprobe/internal/config"
	"github.com/daryltucker/chatprobe/internal/engine"
	"github.com/daryltucker/chatprobe/internal/model"
	"github.com/daryltucker/chatprobe/internal/output"
	"github.com/daryltucker/chatprobe/internal/report"
)

var (
	modelOverride        string
	compareModelOverride string
	outputOverride       string
	probesFile           string
	streamMode           bool
	compareStream        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the probe set against a model",
	Long: `Sends every configured probe to the chat completions endpoint, one at a time,
and reports success, content presence, latency and token usage.

A probe that times out or fails is recorded and the run continues. With
--compare-stream the same probes are sent again with stream=true and both runs
are compared; with --compare-model a second model is probed in the same mode.`,
	Example: `  # Buffered run with the model from chatprobe.yaml / CHATPROBE_MODEL
  chatprobe run

  # Streamed run against another endpoint
  chatprobe run --stream --base-url https://api.example.com --model my-model

  # Compare buffered and streamed delivery, save records
  chatprobe run --compare-stream -o ./results

  # Compare a new model against the old one
  chatprobe run --model new-chat-model --compare-model old-reasoning-model`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyRunOverrides(cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx := cmd.Context()
		e := engine.New(cfg)

		primary := report.Run{
			Label:   runLabel(cfg.Model, streamMode),
			Records: e.Run(ctx, cfg.Model, runLabel(cfg.Model, streamMode), streamMode),
		}

		var secondary *report.Run
		switch {
		case compareStream:
			label := runLabel(cfg.Model, !streamMode)
			secondary = &report.Run{Label: label, Records: e.Run(ctx, cfg.Model, label, !streamMode)}
		case cfg.CompareModel != "":
			label := runLabel(cfg.CompareModel, streamMode)
			secondary = &report.Run{Label: label, Records: e.Run(ctx, cfg.CompareModel, label, streamMode)}
		}

		if cfg.OutputDir != "" {
			runs := [][]model.ResultRecord{primary.Records}
			if secondary != nil {
				runs = append(runs, secondary.Records)
			}
			if err := writeResults(cfg.OutputDir, runs...); err != nil {
				return err
			}
		}

		report.Render(cmd.OutOrStdout(), report.Summarize(primary, secondary))
		return nil
	},
}

func applyRunOverrides(cfg *config.Config) error {
	if modelOverride != "" {
		cfg.Model = modelOverride
	}
	if compareModelOverride != "" {
		cfg.CompareModel = compareModelOverride
	}
	if outputOverride != "" {
		cfg.OutputDir = outputOverride
	}
	if probesFile != "" {
		if err := cfg.LoadProbes(probesFile); err != nil {
			return err
		}
	}
	return nil
}

func runLabel(modelName string, incremental bool) string {
	mode := model.ModeBuffered
	if incremental {
		mode = model.ModeIncremental
	}
	return fmt.Sprintf("%s (%s)", modelName, mode)
}

// writeResults stores every record as CSV and JSON Lines under dir.
func writeResults(dir string, runs ...[]model.ResultRecord) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	csvPath := filepath.Join(dir, "probe_results.csv")
	csvWriter, err := output.NewCSVWriter(csvPath)
	if err != nil {
		return fmt.Errorf("failed to init CSV writer at %s: %w", csvPath, err)
	}
	defer csvWriter.Close()

	jsonPath := filepath.Join(dir, "probe_results.jsonl")
	jsonWriter, err := output.NewJSONWriter(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to init JSON writer at %s: %w", jsonPath, err)
	}
	defer jsonWriter.Close()

	for _, records := range runs {
		for _, rec := range records {
			if err := csvWriter.Write(rec); err != nil {
				return fmt.Errorf("failed to write result to CSV: %w", err)
			}
			if err := jsonWriter.Write(rec); err != nil {
				return fmt.Errorf("failed to write result to JSON: %w", err)
			}
		}
	}

	output.Logger.Info("Results written", "csv", csvPath, "jsonl", jsonPath)
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&modelOverride, "model", "m", "", "model identifier to probe (overrides config)")
	runCmd.Flags().StringVar(&compareModelOverride, "compare-model", "", "second model to probe in the same mode for comparison")
	runCmd.Flags().BoolVar(&streamMode, "stream", false, "use incremental (stream=true) delivery")
	runCmd.Flags().BoolVar(&compareStream, "compare-stream", false, "run again in the other delivery mode and compare")
	runCmd.Flags().StringVarP(&outputOverride, "output-dir", "o", "", "write records as CSV and JSON Lines to this directory")
	runCmd.Flags().StringVarP(&probesFile, "probes-file", "p", "", "YAML file with a list of probes (overrides config)")
	runCmd.MarkFlagsMutuallyExclusive("compare-stream", "compare-model")
}
