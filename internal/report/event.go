package report

import (
	"fmt"
	"sync"
	"time"
)

// Kind names an event. The values are the stable names renderers bind to.
type Kind string

const (
	KindError              Kind = "error"
	KindTableStart         Kind = "table_start"
	KindTableEnd           Kind = "table_end"
	KindRunEnd             Kind = "run_end"
	KindEngineConverted    Kind = "engine_converted"
	KindCollationConverted Kind = "collation_converted"
)

// Event is one item of the run's event stream. Which fields are set
// depends on Kind.
type Event struct {
	Kind Kind

	Table   string
	Search  []string
	Replace []string

	TableReport *TableReport
	RunReport   *RunReport

	Engine    string
	Collation string

	Category Category
	Message  string
}

// Sink consumes events. Emit must not block for long; events arrive in
// run order from a single goroutine.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

type multi []Sink

func (m multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Multi fans events out to every sink, in order.
func Multi(sinks ...Sink) Sink {
	var out multi
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []Kind {
	var out []Kind
	for _, e := range r.Events() {
		out = append(out, e.Kind)
	}
	return out
}

// Emitter pairs a sink with the run's error log. Components report through
// it so an error is both logged and emitted.
type Emitter struct {
	Sink   Sink
	Errors *ErrorLog
}

// NewEmitter returns an Emitter; a nil sink discards events and a nil log
// is replaced by a fresh one.
func NewEmitter(sink Sink, errs *ErrorLog) *Emitter {
	if sink == nil {
		sink = Discard
	}
	if errs == nil {
		errs = NewErrorLog()
	}
	return &Emitter{Sink: sink, Errors: errs}
}

// Emit forwards e to the sink.
func (em *Emitter) Emit(e Event) {
	em.Sink.Emit(e)
}

// Fail records err in the error log and emits an error event for it.
func (em *Emitter) Fail(err error) {
	entry := em.Errors.Record(err)
	msg := entry.Message
	if entry.Table != "" {
		msg = entry.Table + ": " + msg
	}
	em.Sink.Emit(Event{Kind: KindError, Category: entry.Category, Message: msg, Table: entry.Table})
}

// CheckElapsed records a timing anomaly when end precedes start.
func (em *Emitter) CheckElapsed(scope string, start, end time.Time) {
	if d := end.Sub(start); d < 0 {
		em.Fail(Errorf(CategoryTiming, "", "%s ended %s before it started", scope, -d))
	}
}

// Pairs formats search/replace values for display, joined like "a or b".
func Pairs(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	}
	out := values[0]
	for _, v := range values[1:] {
		out = fmt.Sprintf("%s or %s", out, v)
	}
	return out
}
