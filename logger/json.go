package logger

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// JSONLogEntry is one structured log line.
type JSONLogEntry struct {
	Timestamp time.Time              `json:"timestamp,omitempty"`
	Message   string                 `json:"message"`
	Severity  string                 `json:"severity,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Component string                 `json:"component,omitempty"`
}

// String renders the entry as a single JSON document.
func (e JSONLogEntry) String() string {
	if e.Severity == "" {
		e.Severity = "INFO"
	}
	out, err := json.Marshal(e)
	if err != nil {
		return `{"message":"log entry could not be encoded","severity":"ERROR"}`
	}
	return string(out)
}

type jsonLogger struct {
	metadata  map[string]interface{}
	component string
	out       io.Writer
	mu        *sync.Mutex
	logLevel  LogLevel
	now       func() time.Time
}

var _ Logger = (*jsonLogger)(nil)

func (c *jsonLogger) clone() *jsonLogger {
	return &jsonLogger{
		metadata:  copyMetadata(c.metadata, nil),
		component: c.component,
		out:       c.out,
		mu:        c.mu,
		logLevel:  c.logLevel,
		now:       c.now,
	}
}

// WithPrefix appends prefix, without brackets, to the component field.
func (c *jsonLogger) WithPrefix(prefix string) Logger {
	l := c.clone()
	prefix = strings.Trim(prefix, "[]")
	switch {
	case l.component == "":
		l.component = prefix
	case !strings.Contains(l.component, prefix):
		l.component = l.component + ", " + prefix
	}
	return l
}

func (c *jsonLogger) With(metadata map[string]interface{}) Logger {
	l := c.clone()
	l.metadata = copyMetadata(c.metadata, metadata)
	if comp, ok := l.metadata["component"].(string); ok {
		l.component = comp
		delete(l.metadata, "component")
	}
	return l
}

func (c *jsonLogger) IsLevelEnabled(level LogLevel) bool {
	return level >= c.logLevel
}

func (c *jsonLogger) log(level LogLevel, msg string, args ...interface{}) {
	if !c.IsLevelEnabled(level) {
		return
	}
	entry := JSONLogEntry{
		Timestamp: c.now(),
		Message:   ansiColorStripper.ReplaceAllString(format(msg, args), ""),
		Severity:  level.String(),
		Component: c.component,
	}
	if len(c.metadata) > 0 {
		entry.Metadata = c.metadata
	}
	line := entry.String() + "\n"
	c.mu.Lock()
	io.WriteString(c.out, line)
	c.mu.Unlock()
}

func (c *jsonLogger) Trace(msg string, args ...interface{}) { c.log(LevelTrace, msg, args...) }
func (c *jsonLogger) Debug(msg string, args ...interface{}) { c.log(LevelDebug, msg, args...) }
func (c *jsonLogger) Info(msg string, args ...interface{})  { c.log(LevelInfo, msg, args...) }
func (c *jsonLogger) Warn(msg string, args ...interface{})  { c.log(LevelWarn, msg, args...) }
func (c *jsonLogger) Error(msg string, args ...interface{}) { c.log(LevelError, msg, args...) }

func (c *jsonLogger) Fatal(msg string, args ...interface{}) {
	c.log(LevelError, msg, args...)
	os.Exit(1)
}

// NewJSONLogger returns a Logger writing one JSON document per line to out.
// A nil out writes to stderr.
func NewJSONLogger(out io.Writer, level LogLevel) Logger {
	if out == nil {
		out = os.Stderr
	}
	return &jsonLogger{out: out, mu: &sync.Mutex{}, logLevel: level, now: time.Now}
}
