/*
PURPOSE:
  High-level runner that drives the probe set against one model in one
  transport mode and collects one record per probe.

REQUIREMENTS:
  User-specified:
  - Run every configured probe, in order.
  - A failing probe must not stop the rest.

  Implementation-discovered:
  - Needs to report progress (and a reply preview) to the CLI.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/engine/client.go, internal/output

ERROR HANDLING:
  - Logs errors but continues (resilience).

IMPLEMENTATION RULES:
  - Sequential: one request in flight.
  - The returned slice always has len(cfg.Probes) elements.

USAGE:
  records := e.Run(ctx, "gpt-4o-mini", "buffered run", false)

RELATED FILES:
  - internal/engine/client.go
  - internal/report/summary.go
*/

package engine

import (
	"context"

	"github.com/daryltucker/chatprobe/internal/model"
	"github.com/daryltucker/chatprobe/internal/output"
	"github.com/daryltucker/chatprobe/internal/stream"
)

// Run executes every configured probe against modelName and returns the
// records in probe order.
func (e *Engine) Run(ctx context.Context, modelName, label string, incremental bool) []model.ResultRecord {
	probes := e.Config.Probes
	records := make([]model.ResultRecord, 0, len(probes))

	mode := model.ModeBuffered
	if incremental {
		mode = model.ModeIncremental
	}
	output.Logger.Info("Starting run", "label", label, "model", modelName, "mode", mode, "probes", len(probes))

	for i, probe := range probes {
		output.Logger.Info("Running probe",
			"index", i+1,
			"probe", probe.Name,
			"prompt", probe.Prompt,
		)

		rec := e.Do(ctx, e.Spec(modelName, probe, incremental))
		logRecord(rec, e.Config.PreviewChars)
		records = append(records, rec)
	}

	return records
}

func logRecord(rec model.ResultRecord, previewChars int) {
	if !rec.Succeeded {
		output.Logger.Error("Probe failed", "probe", rec.ProbeName, "error", rec.Error)
		return
	}

	output.Logger.Info("Probe succeeded",
		"probe", rec.ProbeName,
		"latency_s", rec.LatencySeconds,
		"prompt_tokens", rec.Tokens.Prompt,
		"completion_tokens", rec.Tokens.Completion,
		"reasoning_tokens", rec.Tokens.Reasoning,
		"has_content", rec.HasContent,
	)
	if rec.HasContent {
		output.Logger.Info("Reply", "probe", rec.ProbeName, "content", stream.Truncate(rec.Content, previewChars))
	} else {
		output.Logger.Warn("Empty reply", "probe", rec.ProbeName)
	}
}
