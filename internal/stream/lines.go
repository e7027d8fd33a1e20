package stream

import (
	"bufio"
	"io"
	"iter"

	"github.com/daryltucker/chatprobe/internal/output"
)

// DefaultMaxLine bounds a single event line.
const DefaultMaxLine = 1024 * 1024

// Lines returns the lines of r as a lazy, single-pass sequence. Line
// terminators (\n or \r\n) are stripped. A read error ends the sequence.
func Lines(r io.Reader, maxLine int) iter.Seq[string] {
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	return func(yield func(string) bool) {
		initial := min(64*1024, maxLine)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, initial), maxLine)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			output.Logger.Warn("Stream read error", "error", err)
		}
	}
}
