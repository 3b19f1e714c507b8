package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/newtron-network/netedit/pkg/util"
)

// Logger stores commit events and answers queries over them.
type Logger interface {
	Log(event *Event) error
	Query(filter Filter) ([]*Event, error)
	Close() error
}

// RotationConfig bounds the size of the audit log. Backups are numbered
// path.1 (newest) to path.N (oldest).
type RotationConfig struct {
	MaxSize    int64 // bytes; 0 disables rotation
	MaxBackups int   // 0 keeps every backup
}

// FileLogger appends events as JSON lines. Queries read the backups as
// well, so `netedit audit --last N` spans a rotation.
type FileLogger struct {
	mu       sync.RWMutex
	path     string
	file     *os.File
	size     int64
	rotation RotationConfig
}

// NewFileLogger opens (or creates) the log at path.
func NewFileLogger(path string, rotation RotationConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	l := &FileLogger{path: path, rotation: rotation}
	if err := l.open(); err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return l, nil
}

func (l *FileLogger) open() error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	l.file, l.size = file, info.Size()
	return nil
}

// Log appends event, rotating first when the file has reached MaxSize.
func (l *FileLogger) Log(event *Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding audit event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotation.MaxSize > 0 && l.size >= l.rotation.MaxSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotating audit log: %w", err)
		}
	}
	n, err := l.file.Write(line)
	l.size += int64(n)
	return err
}

// Query returns the matching events, oldest first.
func (l *FileLogger) Query(filter Filter) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	backups, err := l.backups()
	if err != nil {
		return nil, err
	}
	var events []*Event
	for n := len(backups) - 1; n >= 0; n-- {
		if events, err = l.scan(l.backupPath(backups[n]), filter, events); err != nil {
			return nil, err
		}
	}
	if events, err = l.scan(l.path, filter, events); err != nil {
		return nil, err
	}
	return filter.window(events), nil
}

func (l *FileLogger) scan(path string, filter Filter, events []*Event) ([]*Event, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return events, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			util.Warnf("audit: skipping malformed entry %s:%d: %v", filepath.Base(path), line, err)
			continue
		}
		if filter.Matches(&event) {
			events = append(events, &event)
		}
	}
	return events, scanner.Err()
}

func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// rotate shifts path.N to path.N+1, drops what falls past MaxBackups and
// starts a fresh file.
func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	backups, err := l.backups()
	if err != nil {
		return err
	}
	for n := len(backups) - 1; n >= 0; n-- {
		idx := backups[n]
		if l.rotation.MaxBackups > 0 && idx >= l.rotation.MaxBackups {
			os.Remove(l.backupPath(idx))
			continue
		}
		if err := os.Rename(l.backupPath(idx), l.backupPath(idx+1)); err != nil {
			return err
		}
	}
	if err := os.Rename(l.path, l.backupPath(1)); err != nil {
		return err
	}
	return l.open()
}

func (l *FileLogger) backupPath(idx int) string {
	return l.path + "." + strconv.Itoa(idx)
}

// backups lists the existing backup indexes in ascending order.
func (l *FileLogger) backups() ([]int, error) {
	matches, err := filepath.Glob(l.path + ".*")
	if err != nil {
		return nil, err
	}
	var out []int
	for _, m := range matches {
		idx, err := strconv.Atoi(strings.TrimPrefix(m, l.path+"."))
		if err == nil && idx > 0 {
			out = append(out, idx)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Matches reports whether event passes every criterion set in f.
func (f Filter) Matches(event *Event) bool {
	switch {
	case f.Node != "" && event.Node != f.Node,
		f.User != "" && event.User != f.User,
		f.Operation != "" && event.Operation != f.Operation,
		!f.StartTime.IsZero() && event.Timestamp.Before(f.StartTime),
		!f.EndTime.IsZero() && event.Timestamp.After(f.EndTime),
		f.SuccessOnly && !event.Success,
		f.FailureOnly && event.Success:
		return false
	}
	return true
}

// window applies Last, then Offset, then Limit.
func (f Filter) window(events []*Event) []*Event {
	if f.Last > 0 && f.Last < len(events) {
		events = events[len(events)-f.Last:]
	}
	if f.Offset > 0 {
		if f.Offset >= len(events) {
			return nil
		}
		events = events[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(events) {
		events = events[:f.Limit]
	}
	return events
}

// The process-wide logger used by clients built without one.
var defaultLogger atomic.Pointer[Logger]

// SetDefaultLogger installs logger as the process default; nil disables it.
func SetDefaultLogger(logger Logger) {
	if logger == nil {
		defaultLogger.Store(nil)
		return
	}
	defaultLogger.Store(&logger)
}

func currentLogger() Logger {
	if p := defaultLogger.Load(); p != nil {
		return *p
	}
	return nil
}

// Log records event with the default logger, if any.
func Log(event *Event) error {
	if l := currentLogger(); l != nil {
		return l.Log(event)
	}
	return nil
}

// Query searches the default logger; with none set it finds nothing.
func Query(filter Filter) ([]*Event, error) {
	if l := currentLogger(); l != nil {
		return l.Query(filter)
	}
	return []*Event{}, nil
}
