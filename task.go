package rtlog

// Task is a logging handle that stamps its lines with a fixed task name.
// Create one per goroutine or subsystem; it is safe for concurrent use.
type Task struct {
	l    *Logger
	name string
}

// Task returns a handle logging under name. An empty name falls back to the
// platform's task name.
func (l *Logger) Task(name string) *Task {
	return &Task{l: l, name: name}
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

func (t *Task) Log(severity Severity, tag string, format string, args ...any) {
	t.l.emit(t.name, severity, tag, bodyPrintf, format, args, true, true)
}

func (t *Task) LogNnL(severity Severity, tag string, format string, args ...any) {
	t.l.emit(t.name, severity, tag, bodyPrintf, format, args, false, true)
}

func (t *Task) LogDirect(severity Severity, tag string, msg string) {
	t.l.emit(t.name, severity, tag, bodyText, msg, nil, true, false)
}

func (t *Task) Error(tag string, format string, args ...any) {
	t.l.emit(t.name, SeverityError, tag, bodyPrintf, format, args, true, true)
}

func (t *Task) Warn(tag string, format string, args ...any) {
	t.l.emit(t.name, SeverityWarn, tag, bodyPrintf, format, args, true, true)
}

func (t *Task) Info(tag string, format string, args ...any) {
	t.l.emit(t.name, SeverityInfo, tag, bodyPrintf, format, args, true, true)
}

func (t *Task) Debug(tag string, format string, args ...any) {
	t.l.emit(t.name, SeverityDebug, tag, bodyPrintf, format, args, true, true)
}

func (t *Task) Verbose(tag string, format string, args ...any) {
	t.l.emit(t.name, SeverityVerbose, tag, bodyPrintf, format, args, true, true)
}
