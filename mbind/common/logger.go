package common

import (
	"fmt"
	"log"
	"sync"
)

// MaxLogEntries is how many entries a Logger keeps. Older ones are dropped.
const MaxLogEntries = 500

// Logger is a log utility to log to. Messages and errors are kept so they
// can be handed back to the caller that triggered them.
type Logger struct {
	Entries []*LogEntry
	// FatalFunc is called by Fatal. Tests swap it out.
	FatalFunc func(format string, v ...interface{})

	mu sync.Mutex
}

// Dbg prints an informational message
func (l *Logger) Dbg(format string, v ...interface{}) {
	log.Printf("%s\n", fmt.Sprintf(format, v...))
}

// Msg logs an informational message
func (l *Logger) Msg(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	log.Println(msg)
	l.add(&LogEntry{Msg: msg})
}

// Warn logs something the user should see but that does not stop anything
func (l *Logger) Warn(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	log.Printf("Warning: %s\n", msg)
	l.add(&LogEntry{IsWarning: true, Msg: msg})
}

// Err logs an error message
func (l *Logger) Err(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	log.Printf("%s\n", fmt.Sprintf("Error: %s", msg))
	l.add(&LogEntry{IsError: true, Msg: msg})
}

// Fatal calls log.Fatalf
func (l *Logger) Fatal(format string, v ...interface{}) {
	if l.FatalFunc != nil {
		l.FatalFunc(format, v...)
		return
	}
	log.Fatalf(format, v...)
}

// Snapshot returns a copy of the retained entries
func (l *Logger) Snapshot() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, 0, len(l.Entries))
	for _, e := range l.Entries {
		out = append(out, *e)
	}
	return out
}

// Reset drops the retained entries
func (l *Logger) Reset() {
	l.mu.Lock()
	l.Entries = nil
	l.mu.Unlock()
}

func (l *Logger) add(e *LogEntry) {
	l.mu.Lock()
	if len(l.Entries) >= MaxLogEntries {
		l.Entries = l.Entries[len(l.Entries)-MaxLogEntries+1:]
	}
	l.Entries = append(l.Entries, e)
	l.mu.Unlock()
}

// NewLog creates a new logger
func NewLog() *Logger {
	return &Logger{FatalFunc: log.Fatalf}
}

// LogEntry contains the message and metadata
type LogEntry struct {
	IsError   bool   `json:"is_error,omitempty"`
	IsWarning bool   `json:"is_warning,omitempty"`
	Msg       string `json:"msg"`
}
