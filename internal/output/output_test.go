package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/chatprobe/internal/model"
)

func sampleRecord() model.ResultRecord {
	return model.ResultRecord{
		ProbeName:      "Simple math",
		Model:          "test-model",
		Mode:           model.ModeIncremental,
		Timestamp:      time.Date(2025, 8, 7, 10, 0, 0, 0, time.UTC),
		Succeeded:      true,
		HasContent:     true,
		ContentLength:  3,
		LatencySeconds: 1.5,
		Tokens:         model.TokenUsage{Prompt: 12, Completion: 4, Reasoning: 1},
		Content:        "等于2",
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleRecord()))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, []string{
		"test-model", "incremental", "Simple math", "2025-08-07T10:00:00Z",
		"true", "true", "3", "1.5000", "12", "4", "1", "", "等于2",
	}, rows[1])
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	w, err := NewJSONWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleRecord()))
	require.NoError(t, w.Write(model.ResultRecord{ProbeName: "failed", Error: "timeout"}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var got model.ResultRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, sampleRecord(), got)
	assert.Contains(t, lines[1], `"error":"timeout"`)
}

func TestSetupLevels(t *testing.T) {
	defer SetLogger(Logger)

	var buf bytes.Buffer
	Setup(&buf, false, false)
	Logger.Debug("hidden")
	Logger.Info("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "k=v")

	buf.Reset()
	Setup(&buf, true, true)
	Logger.Debug("visible")
	assert.Contains(t, buf.String(), `"msg":"visible"`)
}
