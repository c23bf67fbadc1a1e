package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Level represents a logging severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level. An empty string means Info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "info", "":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	default:
		return Level(0), fmt.Errorf("unsupported log level %q", s)
	}
}

// Format controls how log entries are rendered.
type Format int

const (
	Text Format = iota
	JSON
)

func (f Format) String() string {
	switch f {
	case Text:
		return "text"
	case JSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat converts a string to a Format. An empty string means Text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "text", "":
		return Text, nil
	default:
		return Format(0), fmt.Errorf("unsupported log format %q", s)
	}
}

// Field is one key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// Hex renders b as space separated hex octets, the way bus payloads are
// read in datasheets.
func Hex(key string, b []byte) Field {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02x", v)
	}
	return Field{Key: key, Value: strings.Join(parts, " ")}
}

// Logger defines leveled structured logging operations.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = New(Info, Text, io.Discard)
)

// Default returns the process-wide logger. It discards output until
// SetDefault installs a real one.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger. nil is ignored.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// Setup parses level and format names and builds a Logger writing to out.
func Setup(level, format string, out io.Writer) (Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	fmtt, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return New(lvl, fmtt, out), nil
}

// sink serializes writes from a logger and every logger derived from it.
type sink struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func (s *sink) write(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.out.Write(line)
}

type logger struct {
	level  Level
	format Format
	fields []Field
	sink   *sink
}

// New constructs a Logger with the given level, format, and output writer.
func New(level Level, format Format, out io.Writer) Logger {
	return &logger{
		level:  level,
		format: format,
		sink:   &sink{out: out, now: time.Now},
	}
}

func (l *logger) With(fields ...Field) Logger {
	child := *l
	child.fields = append(append([]Field(nil), l.fields...), fields...)
	return &child
}

func (l *logger) Debug(msg string, fields ...Field) { l.emit(Debug, msg, fields) }
func (l *logger) Info(msg string, fields ...Field)  { l.emit(Info, msg, fields) }
func (l *logger) Warn(msg string, fields ...Field)  { l.emit(Warn, msg, fields) }
func (l *logger) Error(msg string, fields ...Field) { l.emit(Error, msg, fields) }

func (l *logger) emit(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}
	ts := l.sink.now()
	all := append(append(make([]Field, 0, len(l.fields)+len(fields)), l.fields...), fields...)
	if l.format == JSON {
		l.sink.write(jsonLine(ts, level, msg, all))
		return
	}
	l.sink.write(textLine(ts, level, msg, all))
}

func fieldValue(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return v
}

// textLine renders "<time> LEVEL msg key=value ...". Values that contain
// spaces, quotes or '=' are quoted, so descriptor strings stay one token.
func textLine(ts time.Time, level Level, msg string, fields []Field) []byte {
	var b strings.Builder
	b.WriteString(ts.Format("2006-01-02T15:04:05.000Z07:00"))
	b.WriteByte(' ')
	b.WriteString(level.String())
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		v := fmt.Sprint(fieldValue(f.Value))
		if v == "" || strings.ContainsAny(v, " \t\"=") {
			v = strconv.Quote(v)
		}
		fmt.Fprintf(&b, " %s=%s", f.Key, v)
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func jsonLine(ts time.Time, level Level, msg string, fields []Field) []byte {
	payload := make(map[string]any, len(fields)+3)
	for _, f := range fields {
		if f.Key != "" {
			payload[f.Key] = fieldValue(f.Value)
		}
	}
	payload["time"] = ts.Format(time.RFC3339Nano)
	payload["level"] = level.String()
	payload["msg"] = msg
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(map[string]any{
			"time":  ts.Format(time.RFC3339Nano),
			"level": Error.String(),
			"msg":   "marshal log entry failed",
			"error": err.Error(),
		})
	}
	return append(data, '\n')
}
