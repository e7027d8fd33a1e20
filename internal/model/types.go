/*
PURPOSE:
  Defines the core data structures used throughout chatprobe.
  These models represent probes, outbound requests, stream events and
  the normalized per-probe result records.

REQUIREMENTS:
  User-specified:
  - Record success, content presence, content length, latency and token usage.
  - Track probe name, model and transport mode.

  Implementation-discovered:
  - Need JSON tags for the JSON Lines writer.
  - A failed record never carries content or token counts.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/stream, internal/aggregate,
    internal/report, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - ResultRecord values are immutable once produced; pass by value.

USAGE:
  rec := model.ResultRecord{...}

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go

MAINTENANCE:
  - Update CSV/JSON writers when adding fields to ResultRecord.
*/

package model

import (
	"encoding/json"
	"time"
)

// Transport mode labels used in records and reports.
const (
	ModeBuffered    = "buffered"
	ModeIncremental = "incremental"
)

// Probe is one fixed conversational test input.
type Probe struct {
	Name      string `yaml:"name" json:"name"`
	Prompt    string `yaml:"prompt" json:"prompt"`
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
}

// DefaultProbes is the built-in probe set, in presentation order.
func DefaultProbes() []Probe {
	return []Probe{
		{Name: "Chinese greeting", Prompt: "你好，请简单介绍一下你自己", MaxTokens: 150},
		{Name: "English greeting", Prompt: "Hello, how are you?", MaxTokens: 100},
		{Name: "Simple math", Prompt: "1+1等于几？", MaxTokens: 50},
		{Name: "Creative prompt", Prompt: "给我讲一个关于AI的笑话", MaxTokens: 200},
	}
}

// RequestSpec fully determines one outbound chat completion call.
type RequestSpec struct {
	Model       string
	Probe       Probe
	Temperature float64
	Incremental bool
}

// Mode returns the transport mode label of the request.
func (s RequestSpec) Mode() string {
	if s.Incremental {
		return ModeIncremental
	}
	return ModeBuffered
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

// Body encodes the request payload for POST /v1/chat/completions.
func (s RequestSpec) Body() ([]byte, error) {
	return json.Marshal(chatRequest{
		Model:       s.Model,
		Messages:    []chatMessage{{Role: "user", Content: s.Probe.Prompt}},
		MaxTokens:   s.Probe.MaxTokens,
		Temperature: s.Temperature,
		Stream:      s.Incremental,
	})
}

// TokenUsage is the usage block reported by the server.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Reasoning  int `json:"reasoning"`
}

// EventKind tags a StreamEvent.
type EventKind int

const (
	EventContent EventKind = iota
	EventUsage
	EventTerminator
)

func (k EventKind) String() string {
	switch k {
	case EventContent:
		return "content"
	case EventUsage:
		return "usage"
	case EventTerminator:
		return "terminator"
	default:
		return "unknown"
	}
}

// StreamEvent is one decoded item of an incremental response.
// Text is set for EventContent, Usage for EventUsage.
type StreamEvent struct {
	Kind  EventKind
	Text  string
	Usage TokenUsage
}

// ResultRecord is the normalized outcome of a single probe.
type ResultRecord struct {
	ProbeName      string     `json:"probe_name"`
	Model          string     `json:"model"`
	Mode           string     `json:"mode"`
	Timestamp      time.Time  `json:"timestamp"`
	Succeeded      bool       `json:"succeeded"`
	HasContent     bool       `json:"has_content"`
	ContentLength  int        `json:"content_length"`
	LatencySeconds float64    `json:"latency_seconds"`
	Tokens         TokenUsage `json:"tokens"`
	Content        string     `json:"content,omitempty"`
	Error          string     `json:"error,omitempty"`
}
