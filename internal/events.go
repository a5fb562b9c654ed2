package internal

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type EventKind string

const (
	EventProgress EventKind = "progress"
	EventWarning  EventKind = "warning"
	EventError    EventKind = "error"
)

// Event is one entry of the run's observability stream.
type Event struct {
	Kind      EventKind
	Message   string
	Processed int
	Total     int
}

func (e Event) String() string {
	if e.Kind == EventProgress && e.Total > 0 {
		return fmt.Sprintf("[progress] %d/%d %s", e.Processed, e.Total, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

type EventSink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// MultiSink fans an event out to every sink.
type MultiSink []EventSink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Discard drops every event.
var Discard EventSink = SinkFunc(func(Event) {})

// LogSink writes events to a zerolog logger.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Emit(e Event) {
	var ev *zerolog.Event
	switch e.Kind {
	case EventError:
		ev = s.Logger.Error()
	case EventWarning:
		ev = s.Logger.Warn()
	default:
		ev = s.Logger.Info()
	}
	if e.Total > 0 {
		ev = ev.Int("processed", e.Processed).Int("total", e.Total)
	}
	ev.Str("kind", string(e.Kind)).Msg(e.Message)
}

// RunLog accumulates events as text lines for the job log.
type RunLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *RunLog) Emit(e Event) {
	l.Append(e.String())
}

func (l *RunLog) Append(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

func (l *RunLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.lines) == 0 {
		return ""
	}
	return strings.Join(l.lines, "\n") + "\n"
}
