// Package log builds the apex/log logger handed to every component.
package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// EnvLevel overrides the configured log level when set.
const EnvLevel = "AWS_SWEEP_LOG"

// New returns a logger writing to w at the given level. An empty or unknown
// level falls back to info. EnvLevel wins over level.
func New(level string, w io.Writer) *log.Logger {
	if env := os.Getenv(EnvLevel); env != "" {
		level = env
	}
	if w == nil {
		w = os.Stderr
	}
	return &log.Logger{
		Handler: &LineHandler{w: w},
		Level:   ParseLevel(level),
	}
}

// ParseLevel maps a level name to an apex level, defaulting to info.
func ParseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// LineHandler writes one "timestamp L message key=value" line per entry.
type LineHandler struct {
	mu sync.Mutex
	w  io.Writer
}

// HandleLog implements log.Handler.
func (h *LineHandler) HandleLog(e *log.Entry) error {
	level := "?"
	switch e.Level {
	case log.DebugLevel:
		level = "D"
	case log.InfoLevel:
		level = "I"
	case log.WarnLevel:
		level = "W"
	case log.ErrorLevel:
		level = "E"
	case log.FatalLevel:
		level = "F"
	}

	var b strings.Builder
	b.WriteString(e.Timestamp.Format(time.DateTime))
	b.WriteByte(' ')
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(e.Message)

	names := e.Fields.Names()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields.Get(name))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}
