/*
PURPOSE:
  Writes probe result records to a CSV file.
  Flushes after every record so partial runs stay readable.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Consumes: internal/model.ResultRecord

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write.

USAGE:
  w, err := output.NewCSVWriter("results.csv")
  w.Write(record)
  w.Close()

MAINTENANCE:
  - Update header and Write() mapping when ResultRecord changes.
*/

package output

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/daryltucker/chatprobe/internal/model"
)

// CSVHeader is the column order written by CSVWriter.
var CSVHeader = []string{
	"model", "mode", "probe", "timestamp",
	"succeeded", "has_content", "content_length", "latency_s",
	"prompt_tokens", "completion_tokens", "reasoning_tokens",
	"error", "content",
}

// CSVWriter handles writing records to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter.
// It overwrites the file if it exists.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(CSVHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()

	return &CSVWriter{
		file:   f,
		writer: w,
	}, nil
}

// Write writes a single record to the CSV file.
// It is thread-safe.
func (cw *CSVWriter) Write(r model.ResultRecord) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	record := []string{
		r.Model,
		r.Mode,
		r.ProbeName,
		r.Timestamp.Format(time.RFC3339),
		strconv.FormatBool(r.Succeeded),
		strconv.FormatBool(r.HasContent),
		strconv.Itoa(r.ContentLength),
		strconv.FormatFloat(r.LatencySeconds, 'f', 4, 64),
		strconv.Itoa(r.Tokens.Prompt),
		strconv.Itoa(r.Tokens.Completion),
		strconv.Itoa(r.Tokens.Reasoning),
		r.Error,
		r.Content,
	}

	if err := cw.writer.Write(record); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	return cw.file.Close()
}
