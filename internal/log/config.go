package log

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Format is the log line encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatText
)

func (f Format) String() string {
	if f == FormatText {
		return "text"
	}
	return "json"
}

// ParseFormat maps a format name to a Format. Unknown names select JSON.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "console":
		return FormatText
	default:
		return FormatJSON
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown formats.
func (f *Format) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "json":
		*f = FormatJSON
	case "text", "console":
		*f = FormatText
	default:
		return fmt.Errorf("unknown log format %q", string(text))
	}
	return nil
}

// Output is the destination of log lines.
type Output struct {
	writer io.Writer
}

// Writer returns the destination. The zero Output writes to stderr.
func (o Output) Writer() io.Writer {
	if o.writer == nil {
		return os.Stderr
	}
	return o.writer
}

// NewOutput wraps w.
func NewOutput(w io.Writer) Output {
	return Output{writer: w}
}

// OutputStderr writes to stderr.
func OutputStderr() Output {
	return Output{writer: os.Stderr}
}

// Config holds configuration for the logger
type Config struct {
	// Level is the minimum level written
	Level Level

	Format Format
	Output Output

	// AddSource includes file:line in every entry
	AddSource bool

	ServiceName    string
	ServiceVersion string
}

// DefaultConfig returns the CLI default: warn level, text, stderr.
// Stdout is kept for command results.
func DefaultConfig() Config {
	return Config{
		Level:          LevelWarn,
		Format:         FormatText,
		Output:         OutputStderr(),
		ServiceName:    "verdict",
		ServiceVersion: "dev",
	}
}
