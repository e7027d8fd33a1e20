/*
PURPOSE:
  Decodes an incremental (stream=true) chat completion response.
  Turns raw "data: " lines into content fragments and a usage block.

REQUIREMENTS:
  User-specified:
  - Stop at the [DONE] terminator.
  - Preserve fragment order exactly as received.
  - Repair double-encoded text in each fragment.

  Implementation-discovered:
  - Servers interleave keep-alive blank lines and comments; ignore them.
  - A single broken frame must not lose the rest of the reply.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Uses: internal/textfix, internal/model, internal/output

ERROR HANDLING:
  - Malformed frames are logged and skipped.
  - A read error ends the stream; whatever was accumulated is kept.

IMPLEMENTATION RULES:
  - The line source is an iter.Seq so tests can feed canned lines.
  - Usage: last block wins.

USAGE:
  res := stream.Parse(ctx, stream.Lines(resp.Body, 0))

RELATED FILES:
  - internal/aggregate/aggregate.go
  - internal/textfix/repair.go
*/

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/daryltucker/chatprobe/internal/model"
	"github.com/daryltucker/chatprobe/internal/output"
	"github.com/daryltucker/chatprobe/internal/textfix"
)

const (
	// DataPrefix starts every event line that carries a payload.
	DataPrefix = "data:"
	// Terminator is the payload that ends the stream.
	Terminator = "[DONE]"

	excerptLen = 100
)

var errNoPayload = errors.New("no data payload")

// Result is the folded outcome of an incremental response.
type Result struct {
	Content    string
	Usage      *model.TokenUsage
	Fragments  int
	Skipped    int
	Terminated bool
}

// Decoder turns lines into stream events and counts frames it had to drop.
type Decoder struct {
	Skipped int
}

// Events yields the decoded events of lines, in order. A terminator event is
// yielded last when the stream carries one; nothing after it is read.
func (d *Decoder) Events(ctx context.Context, lines iter.Seq[string]) iter.Seq[model.StreamEvent] {
	return func(yield func(model.StreamEvent) bool) {
		for line := range lines {
			if ctx.Err() != nil {
				return
			}
			if line == "" {
				continue
			}
			output.Logger.Debug("Stream frame", "line", Truncate(line, excerptLen))

			events, err := decodeLine(line)
			if errors.Is(err, errNoPayload) {
				continue
			}
			if err != nil {
				d.Skipped++
				output.Logger.Warn("Skipping malformed stream frame", "error", err, "line", Truncate(line, excerptLen))
				continue
			}
			for _, ev := range events {
				if !yield(ev) {
					return
				}
				if ev.Kind == model.EventTerminator {
					return
				}
			}
		}
	}
}

// Parse consumes lines once and folds them into a Result. Running out of
// lines without a terminator is not an error.
func Parse(ctx context.Context, lines iter.Seq[string]) Result {
	var (
		d     Decoder
		res   Result
		parts strings.Builder
	)
	for ev := range d.Events(ctx, lines) {
		switch ev.Kind {
		case model.EventContent:
			parts.WriteString(ev.Text)
			res.Fragments++
		case model.EventUsage:
			u := ev.Usage
			res.Usage = &u
		case model.EventTerminator:
			res.Terminated = true
		}
	}
	res.Content = parts.String()
	res.Skipped = d.Skipped

	output.Logger.Debug("Stream folded",
		"fragments", res.Fragments,
		"chars", len([]rune(res.Content)),
		"skipped", res.Skipped,
		"terminated", res.Terminated,
	)
	return res
}

// decodeLine returns the events carried by one line. Lines without the data
// prefix report errNoPayload.
func decodeLine(line string) ([]model.StreamEvent, error) {
	payload, ok := strings.CutPrefix(line, DataPrefix)
	if !ok {
		return nil, errNoPayload
	}
	payload = strings.TrimSpace(payload)
	if payload == Terminator {
		return []model.StreamEvent{{Kind: model.EventTerminator}}, nil
	}

	var chunk Chunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return nil, fmt.Errorf("decode chunk: %w", err)
	}

	var events []model.StreamEvent
	if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != nil {
		events = append(events, model.StreamEvent{
			Kind: model.EventContent,
			Text: textfix.Repair(*chunk.Choices[0].Delta.Content),
		})
	}
	if chunk.Usage != nil {
		events = append(events, model.StreamEvent{
			Kind:  model.EventUsage,
			Usage: chunk.Usage.TokenUsage(),
		})
	}
	return events, nil
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
