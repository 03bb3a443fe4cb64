package event

import (
	"github.com/sirupsen/logrus"
)

// Func adapts a function to a Sink.
type Func func(ev Event)

func (fn Func) Publish(ev Event) {
	fn(ev)
}

// Multi fans an event out to every sink, in order.
type Multi []Sink

func (multi Multi) Publish(ev Event) {
	for _, sink := range multi {
		Publish(sink, ev)
	}
}

// Recorder keeps every published event.
type Recorder struct {
	Events []Event
}

func (rec *Recorder) Publish(ev Event) {
	rec.Events = append(rec.Events, ev)
}

// Reset forgets all recorded events.
func (rec *Recorder) Reset() {
	rec.Events = nil
}

// Of returns the recorded events from a single source.
func (rec *Recorder) Of(src Source) (events []Event) {
	for _, ev := range rec.Events {
		if ev.Source() == src {
			events = append(events, ev)
		}
	}
	return
}

// LogSink writes events as structured log entries.
type LogSink struct {
	Logger *logrus.Logger  // Defaults to the logrus standard logger.
	Level  logrus.Level    // Level used for every entry.
	Filter map[Source]bool // If non-empty, only these sources are logged.
}

func (ls *LogSink) Publish(ev Event) {
	if len(ls.Filter) != 0 && !ls.Filter[ev.Source()] {
		return
	}

	logger := ls.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	level := ls.Level
	if level == 0 {
		level = logrus.DebugLevel
	}

	logger.WithFields(fields(ev)).Log(level, ev.String())
}

func fields(ev Event) logrus.Fields {
	fields := logrus.Fields{"source": ev.Source().String()}

	switch ev := ev.(type) {
	case Register:
		fields["register"] = ev.Name
		fields["access"] = ev.Access.String()
	case Alu:
		fields["op"] = ev.Op
		fields["carry"] = ev.Carry
		fields["zero"] = ev.Zero
	case Cpu:
		fields["op"] = ev.Op
		fields["ip"] = ev.IP
	case Io:
		fields["port"] = ev.Address
		fields["access"] = ev.Access.String()
	case Irq:
		fields["op"] = ev.Op
		fields["signal"] = ev.Signal
	}

	return fields
}
