package observability

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// maxEventLine bounds a single JSONL record. Produced-item maps on large
// tasks can outgrow bufio's 64 KiB default.
const maxEventLine = 1 << 20

// Event is one line of the settlement event log. Time is the wall clock at
// which it was written; GameTime is the simulation time it happened at.
type Event struct {
	Time     time.Time      `json:"time"`
	GameTime *time.Time     `json:"game_time,omitempty"`
	Level    string         `json:"level"` // INFO or WARN
	Type     string         `json:"type"`  // e.g. "task.created", "food.hunger"
	Message  string         `json:"msg"`
	Data     map[string]any `json:"data,omitempty"`
}

// EventFilter selects events on read. Zero fields match everything. The
// game-time bounds never match an event written without a game time.
type EventFilter struct {
	Since     *time.Time
	Until     *time.Time
	GameSince *time.Time
	GameUntil *time.Time
	Types     []string
	Level     string
}

// EventLog stores settlement events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

type jsonlEventLog struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
}

// NewJSONLEventLog opens (or creates) the append-only JSONL log at path.
func NewJSONLEventLog(path string) (EventLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log %s: %w", path, err)
	}
	return &jsonlEventLog{path: path, file: f, enc: json.NewEncoder(f)}, nil
}

func (l *jsonlEventLog) Write(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Encode terminates each record with a newline.
	if err := l.enc.Encode(event); err != nil {
		return fmt.Errorf("writing %s event: %w", event.Type, err)
	}
	return nil
}

// Read returns the matching events in write order. Lines that do not
// decode are skipped so a torn final write does not hide the rest.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading event log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if json.Unmarshal(line, &e) != nil {
			continue
		}
		if filter.matches(e) {
			out = append(out, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading event log: %w", err)
	}
	return out, nil
}

func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

func (f EventFilter) matches(e Event) bool {
	if !within(e.Time, f.Since, f.Until) {
		return false
	}
	if f.GameSince != nil || f.GameUntil != nil {
		if e.GameTime == nil || !within(*e.GameTime, f.GameSince, f.GameUntil) {
			return false
		}
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, e.Type) {
		return false
	}
	return f.Level == "" || e.Level == f.Level
}

// within reports whether t lies in the closed range [from, to]; nil bounds
// are open.
func within(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	return to == nil || !t.After(*to)
}

// Recorder writes published settlement events to an EventLog, stamping each
// with the current game time.
type Recorder struct {
	log      EventLog
	gameTime func() time.Time
}

// NewRecorder creates a Recorder. gameTime reports the simulation clock.
func NewRecorder(log EventLog, gameTime func() time.Time) *Recorder {
	return &Recorder{log: log, gameTime: gameTime}
}

var messageReplacer = strings.NewReplacer(".", " ", "_", " ")

// LogEvent writes one event of the given type. data is stored as given.
func (r *Recorder) LogEvent(eventType string, data map[string]any) error {
	at := r.gameTime()
	return r.log.Write(Event{
		Time:     time.Now().UTC(),
		GameTime: &at,
		Level:    eventLevel(eventType),
		Type:     eventType,
		Message:  messageReplacer.Replace(eventType),
		Data:     data,
	})
}

func eventLevel(eventType string) string {
	switch eventType {
	case "task.failed", "food.hunger":
		return "WARN"
	default:
		return "INFO"
	}
}

// intValue reads a number from decoded event data. JSON numbers decode as
// float64; events that never left the process still hold ints.
func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
