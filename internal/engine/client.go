/*
PURPOSE:
  Core engine for talking to an OpenAI-style chat completions endpoint.
  Issues one call per probe in buffered or incremental mode and turns the
  outcome into a model.ResultRecord.

REQUIREMENTS:
  User-specified:
  - Buffered (stream=false) and incremental (stream=true) calls.
  - Fixed per-request timeout; latency measured around the call.

  Implementation-discovered:
  - Needs http.Client with a cloned transport.
  - The timeout must cover reading the body, not just the headers,
    otherwise a stalled stream hangs the run.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go, internal/cli
  - Uses: internal/config, internal/model, internal/stream,
    internal/aggregate, internal/output

ERROR HANDLING:
  - Do never returns an error: timeouts, transport faults, HTTP errors
    and decode errors all become failed records.
  - No retries.

USAGE:
  e := engine.New(cfg)
  rec := e.Do(ctx, spec)
  models, err := e.ListModels(ctx)

RELATED FILES:
  - internal/config/config.go
  - internal/aggregate/aggregate.go
  - internal/stream/parser.go
*/

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sort"
	"time"

	"github.com/daryltucker/chatprobe/internal/aggregate"
	"github.com/daryltucker/chatprobe/internal/config"
	"github.com/daryltucker/chatprobe/internal/model"
	"github.com/daryltucker/chatprobe/internal/output"
	"github.com/daryltucker/chatprobe/internal/stream"
)

// maxBodySize bounds a buffered response body.
const maxBodySize = 16 << 20

// Engine handles chat completion calls.
type Engine struct {
	Config *config.Config
	Client *http.Client
}

// New creates a new Engine.
func New(cfg *config.Config) *Engine {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Headers must arrive within the probe timeout; the body deadline is
	// enforced by the request context.
	transport.ResponseHeaderTimeout = cfg.Timeout

	return &Engine{
		Config: cfg,
		Client: &http.Client{Transport: transport},
	}
}

// Spec builds the request for one probe.
func (e *Engine) Spec(modelName string, probe model.Probe, incremental bool) model.RequestSpec {
	return model.RequestSpec{
		Model:       modelName,
		Probe:       probe,
		Temperature: e.Config.Temperature,
		Incremental: incremental,
	}
}

// Do issues a single chat completion call and returns its record.
func (e *Engine) Do(ctx context.Context, spec model.RequestSpec) model.ResultRecord {
	rec := e.do(ctx, spec)
	rec.Model = spec.Model
	rec.Mode = spec.Mode()
	return rec
}

func (e *Engine) do(ctx context.Context, spec model.RequestSpec) model.ResultRecord {
	probe := spec.Probe.Name
	start := time.Now()

	fail := func(err error) model.ResultRecord {
		rec := aggregate.Failed(probe, err.Error())
		rec.Timestamp = start
		return rec
	}

	payload, err := spec.Body()
	if err != nil {
		return fail(fmt.Errorf("encode request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, e.Config.Timeout)
	defer cancel()

	ctx = httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			output.Logger.Debug("Network: Connected", "remote", info.Conn.RemoteAddr(), "reused", info.Reused)
		},
		GotFirstResponseByte: func() {
			output.Logger.Debug("Network: First Byte Received", "probe", probe, "ttfb", time.Since(start))
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Config.Endpoint(), bytes.NewReader(payload))
	if err != nil {
		return fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+e.Config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if spec.Incremental {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return fail(classify(ctx, err))
	}
	defer resp.Body.Close()

	var rec model.ResultRecord
	if spec.Incremental {
		rec, err = e.readIncremental(ctx, probe, resp, start)
	} else {
		rec, err = readBuffered(ctx, probe, resp, start)
	}
	if err != nil {
		return fail(err)
	}
	rec.Timestamp = start
	return rec
}

func readBuffered(ctx context.Context, probe string, resp *http.Response, start time.Time) (model.ResultRecord, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return model.ResultRecord{}, classify(ctx, err)
	}
	return aggregate.FromBuffered(probe, resp.StatusCode, body, time.Since(start)), nil
}

func (e *Engine) readIncremental(ctx context.Context, probe string, resp *http.Response, start time.Time) (model.ResultRecord, error) {
	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return model.ResultRecord{}, classify(ctx, err)
		}
		return aggregate.FromIncremental(probe, resp.StatusCode, body, stream.Result{}, time.Since(start)), nil
	}

	parsed := stream.Parse(ctx, stream.Lines(resp.Body, e.Config.MaxStreamLine))
	if ctx.Err() != nil {
		return model.ResultRecord{}, classify(ctx, ctx.Err())
	}
	return aggregate.FromIncremental(probe, resp.StatusCode, nil, parsed, time.Since(start)), nil
}

// ListModels returns the model identifiers served by the endpoint, sorted.
func (e *Engine) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.Config.ModelsEndpoint(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e.Config.APIKey)

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("bad status: %s", aggregate.HTTPErrorDetail(resp.StatusCode, body))
	}

	var payload struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}

	names := make([]string, 0, len(payload.Data))
	for _, m := range payload.Data {
		names = append(names, m.ID)
	}
	sort.Strings(names)
	return names, nil
}
