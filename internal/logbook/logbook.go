package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logbook appends panel activity to a plain text file. Fetch failures are
// recorded here instead of being shown in the panel.
type Logbook struct {
	path  string
	clock func() time.Time
	mu    sync.Mutex
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure dir: %w", err)
	}
	return &Logbook{path: path, clock: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry to the logbook.
func (l *Logbook) Append(level Level, component, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	tag := ""
	if component = strings.TrimSpace(component); component != "" {
		tag = "[" + component + "] "
	}
	line := fmt.Sprintf("%s %-5s %s%s\n",
		l.clock().UTC().Format(time.RFC3339),
		string(level),
		tag,
		strings.TrimSpace(message),
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Tail returns up to maxLines of the most recent entries and the total
// number of entries in the file.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, "", fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, "", fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, "", fmt.Sprintf(format, args...))
}

// Scope tags every entry with a component name.
type Scope struct {
	book      *Logbook
	component string
}

// Scope returns a component-tagged view of the logbook. A nil logbook
// yields a scope that drops everything.
func (l *Logbook) Scope(component string) Scope {
	return Scope{book: l, component: component}
}

// Info appends an informational entry.
func (s Scope) Info(format string, args ...any) {
	s.book.Append(LevelInfo, s.component, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (s Scope) Warn(format string, args ...any) {
	s.book.Append(LevelWarn, s.component, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (s Scope) Error(format string, args ...any) {
	s.book.Append(LevelError, s.component, fmt.Sprintf(format, args...))
}

// Printf appends an informational entry so a Scope can serve as a plain logger.
func (s Scope) Printf(format string, args ...any) {
	s.Info(format, args...)
}
