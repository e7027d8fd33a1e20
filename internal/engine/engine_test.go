package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/chatprobe/internal/config"
	"github.com/daryltucker/chatprobe/internal/model"
	"github.com/daryltucker/chatprobe/internal/textfix"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

// newServer answers according to the prompt text:
// "ok" replies "pong", "fail" returns 500, "garbage" returns broken JSON,
// "slow" blocks past the client timeout, "empty" replies with no content.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		prompt := req.Messages[0].Content
		switch prompt {
		case "fail":
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		case "garbage":
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{"choices":[`)
			return
		case "slow":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}

		reply := "pong"
		if prompt == "empty" {
			reply = ""
		}
		if req.Stream {
			writeStream(w, reply)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}],"usage":{"prompt_tokens":5,"completion_tokens":%d,"completion_tokens_details":{"reasoning_tokens":0}}}`,
			reply, req.MaxTokens)
	}))
}

func writeStream(w http.ResponseWriter, reply string) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)
	for _, r := range reply {
		b, _ := json.Marshal(textfix.Mangle(string(r)))
		fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%s}}]}\n\n", b)
		flusher.Flush()
	}
	fmt.Fprint(w, "data: {not json}\n\n")
	fmt.Fprint(w, "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":4}}\n\n")
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func testConfig(baseURL string, probes ...model.Probe) *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.APIKey = "sk-test"
	cfg.Model = "test-model"
	cfg.Timeout = 2 * time.Second
	cfg.Probes = probes
	return cfg
}

func probe(prompt string) model.Probe {
	return model.Probe{Name: prompt + " probe", Prompt: prompt, MaxTokens: 7}
}

func TestRunReturnsOneRecordPerProbeInOrder(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	probes := []model.Probe{probe("ok"), probe("fail"), probe("garbage"), probe("empty"), probe("ok")}
	e := New(testConfig(srv.URL, probes...))

	for _, incremental := range []bool{false, true} {
		records := e.Run(context.Background(), "test-model", "run", incremental)
		require.Len(t, records, len(probes))
		for i, rec := range records {
			assert.Equal(t, probes[i].Name, rec.ProbeName)
			assert.Equal(t, "test-model", rec.Model)
			assert.False(t, rec.Timestamp.IsZero())
		}

		assert.True(t, records[0].Succeeded)
		assert.True(t, records[0].HasContent)
		assert.Equal(t, "pong", records[0].Content)

		assert.False(t, records[1].Succeeded)
		assert.Contains(t, records[1].Error, "500")
		assert.Contains(t, records[1].Error, "upstream exploded")

		assert.True(t, records[3].Succeeded)
		assert.False(t, records[3].HasContent)

		assert.True(t, records[4].HasContent)
	}
}

func TestDoBuffered(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	e := New(testConfig(srv.URL))

	rec := e.Do(context.Background(), e.Spec("test-model", probe("ok"), false))

	assert.Equal(t, model.ModeBuffered, rec.Mode)
	assert.True(t, rec.Succeeded)
	assert.Equal(t, 4, rec.ContentLength)
	assert.Equal(t, model.TokenUsage{Prompt: 5, Completion: 7}, rec.Tokens)
	assert.Greater(t, rec.LatencySeconds, 0.0)
}

func TestDoBufferedMalformedBody(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	e := New(testConfig(srv.URL))

	rec := e.Do(context.Background(), e.Spec("test-model", probe("garbage"), false))

	assert.False(t, rec.Succeeded)
	assert.Contains(t, rec.Error, "decode response")
}

func TestDoIncremental(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	e := New(testConfig(srv.URL))

	rec := e.Do(context.Background(), e.Spec("test-model", probe("ok"), true))

	assert.Equal(t, model.ModeIncremental, rec.Mode)
	assert.True(t, rec.Succeeded)
	assert.Equal(t, "pong", rec.Content)
	assert.Equal(t, model.TokenUsage{Prompt: 5, Completion: 4}, rec.Tokens)
}

func TestDoIncrementalHTTPError(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	e := New(testConfig(srv.URL))

	rec := e.Do(context.Background(), e.Spec("test-model", probe("fail"), true))

	assert.False(t, rec.Succeeded)
	assert.Contains(t, rec.Error, "HTTP 500")
}

func TestDoUnauthorized(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	cfg := testConfig(srv.URL)
	cfg.APIKey = "wrong"
	e := New(cfg)

	rec := e.Do(context.Background(), e.Spec("test-model", probe("ok"), false))

	assert.False(t, rec.Succeeded)
	assert.Contains(t, rec.Error, "HTTP 401")
}

func TestDoTimeout(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	cfg := testConfig(srv.URL)
	cfg.Timeout = 100 * time.Millisecond
	e := New(cfg)

	for _, incremental := range []bool{false, true} {
		rec := e.Do(context.Background(), e.Spec("test-model", probe("slow"), incremental))

		assert.False(t, rec.Succeeded)
		assert.False(t, rec.HasContent)
		assert.Equal(t, ErrTimeout.Error(), rec.Error)
		assert.Zero(t, rec.LatencySeconds)
	}
}

func TestDoStalledStreamTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"par\"}}]}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()
	cfg := testConfig(srv.URL)
	cfg.Timeout = 150 * time.Millisecond
	e := New(cfg)

	rec := e.Do(context.Background(), e.Spec("test-model", probe("ok"), true))

	assert.False(t, rec.Succeeded)
	assert.Equal(t, "timeout", rec.Error)
}

func TestDoTransportFault(t *testing.T) {
	srv := newServer(t)
	url := srv.URL
	srv.Close()
	e := New(testConfig(url))

	rec := e.Do(context.Background(), e.Spec("test-model", probe("ok"), false))

	assert.False(t, rec.Succeeded)
	assert.Contains(t, rec.Error, "transport error")
}

func TestRunContinuesAfterFaults(t *testing.T) {
	srv := newServer(t)
	url := srv.URL
	srv.Close()
	e := New(testConfig(url, probe("a"), probe("b"), probe("c")))

	records := e.Run(context.Background(), "test-model", "dead endpoint", true)

	require.Len(t, records, 3)
	for _, rec := range records {
		assert.False(t, rec.Succeeded)
		assert.NotEmpty(t, rec.Error)
	}
}

func TestRequestBody(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"x"}}]}`)
	}))
	defer srv.Close()
	e := New(testConfig(srv.URL))

	e.Do(context.Background(), e.Spec("m-1", model.Probe{Name: "n", Prompt: "你好", MaxTokens: 150}, false))

	assert.Equal(t, "m-1", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "你好", got.Messages[0].Content)
	assert.Equal(t, 150, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	assert.False(t, got.Stream)
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"object":"list","data":[{"id":"zeta"},{"id":"alpha"}]}`)
	}))
	defer srv.Close()
	e := New(testConfig(srv.URL + "/"))

	models, err := e.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, models)
}

func TestListModelsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	e := New(testConfig(srv.URL))

	_, err := e.ListModels(context.Background())
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestClassify(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := classify(ctx, context.Canceled)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, context.Canceled)

	expired, cancel2 := context.WithTimeout(context.Background(), -time.Second)
	defer cancel2()
	assert.ErrorIs(t, classify(expired, errors.New("read: closed")), ErrTimeout)
}
