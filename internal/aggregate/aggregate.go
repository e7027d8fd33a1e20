// Package aggregate folds buffered and incremental responses into one
// normalized model.ResultRecord. None of its functions fail: every problem
// with a response becomes a failed record.
package aggregate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/daryltucker/chatprobe/internal/model"
	"github.com/daryltucker/chatprobe/internal/stream"
)

// ErrorExcerptLen bounds the body text kept in an HTTP error detail.
const ErrorExcerptLen = 100

// Completion is the buffered chat completion body.
type Completion struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *stream.Usage `json:"usage"`
}

// FromBuffered builds the record of a stream=false call.
func FromBuffered(probe string, status int, body []byte, latency time.Duration) model.ResultRecord {
	if status != http.StatusOK {
		return Failed(probe, HTTPErrorDetail(status, body))
	}

	var c Completion
	if err := json.Unmarshal(body, &c); err != nil {
		return Failed(probe, fmt.Sprintf("decode response: %v", err))
	}

	var content string
	if len(c.Choices) > 0 && c.Choices[0].Message.Content != nil {
		content = *c.Choices[0].Message.Content
	}
	return succeeded(probe, content, c.Usage.TokenUsage(), latency)
}

// FromIncremental builds the record of a stream=true call from the folded
// stream. A non-200 status is classified before the body is parsed, so
// callers pass the raw body text for the error detail.
func FromIncremental(probe string, status int, errBody []byte, parsed stream.Result, latency time.Duration) model.ResultRecord {
	if status != http.StatusOK {
		return Failed(probe, HTTPErrorDetail(status, errBody))
	}

	var usage model.TokenUsage
	if parsed.Usage != nil {
		usage = *parsed.Usage
	}
	return succeeded(probe, parsed.Content, usage, latency)
}

// Failed builds a failed record. It carries no content and no tokens.
func Failed(probe, detail string) model.ResultRecord {
	return model.ResultRecord{
		ProbeName: probe,
		Error:     detail,
	}
}

// HTTPErrorDetail formats a non-200 response as "HTTP <status>: <excerpt>".
func HTTPErrorDetail(status int, body []byte) string {
	return fmt.Sprintf("HTTP %d: %s", status, excerpt(string(body), ErrorExcerptLen))
}

func succeeded(probe, content string, usage model.TokenUsage, latency time.Duration) model.ResultRecord {
	rec := model.ResultRecord{
		ProbeName:      probe,
		Succeeded:      true,
		HasContent:     strings.TrimSpace(content) != "",
		ContentLength:  utf8.RuneCountInString(content),
		LatencySeconds: latency.Seconds(),
		Tokens:         usage,
		Content:        content,
	}
	return rec
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
