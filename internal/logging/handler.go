package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ---- Templates ----

const recordTimeFormat = "2006-01-02 15:04:05.000"

var templateTokens = map[string]bool{
	"time": true, "channel": true, "level": true, "logger": true, "caller": true,
	"line": true, "message": true, "process": true, "thread": true,
}

type segment struct {
	text  string
	token bool
}

// compileFormat splits a {token} template into literal and token segments.
// Unknown placeholders are kept as literal text.
func compileFormat(format string) []segment {
	var segs []segment
	var lit strings.Builder
	for i := 0; i < len(format); {
		if format[i] == '{' {
			if end := strings.IndexByte(format[i:], '}'); end > 0 {
				name := format[i+1 : i+end]
				if templateTokens[name] {
					if lit.Len() > 0 {
						segs = append(segs, segment{text: lit.String()})
						lit.Reset()
					}
					segs = append(segs, segment{text: name, token: true})
					i += end + 1
					continue
				}
			}
		}
		lit.WriteByte(format[i])
		i++
	}
	if lit.Len() > 0 {
		segs = append(segs, segment{text: lit.String()})
	}
	return segs
}

func renderFormat(segs []segment, rec Record) string {
	var b strings.Builder
	for _, s := range segs {
		if !s.token {
			b.WriteString(s.text)
			continue
		}
		switch s.text {
		case "time":
			b.WriteString(rec.Time.Format(recordTimeFormat))
		case "channel":
			b.WriteString(rec.Channel)
		case "level":
			b.WriteString(rec.Level)
		case "logger":
			b.WriteString(rec.Logger)
		case "caller":
			b.WriteString(rec.Caller)
		case "line":
			b.WriteString(callerLine(rec.Caller))
		case "message":
			b.WriteString(rec.Message)
		case "process":
			b.WriteString(strconv.Itoa(os.Getpid()))
		case "thread":
			b.WriteString(strconv.Itoa(threadID()))
		}
	}
	return b.String()
}

func callerLine(caller string) string {
	if i := strings.LastIndexByte(caller, ':'); i >= 0 {
		return caller[i+1:]
	}
	return "0"
}

// formatExtras renders fields as sorted " key=value" pairs.
func formatExtras(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fmt.Sprint(fields[k]))
	}
	return b.String()
}

// ---- Handlers ----

type sink interface {
	emit(level zerolog.Level, rec Record) error
	Close() error
}

type handler struct {
	name    string
	level   zerolog.Level
	format  []segment
	filters []*ChannelFilter
	sink    sink
}

func (h *handler) handle(level zerolog.Level, at time.Time, event map[string]any) error {
	if level < h.level {
		return nil
	}

	fields := make(map[string]any, len(event)+1)
	for k, v := range event {
		fields[k] = v
	}
	for _, f := range h.filters {
		f.Apply(fields)
	}

	rec := newRecord(level, at, fields)
	rec.Text = renderFormat(h.format, rec)
	return h.sink.emit(level, rec)
}

// newRecord splits decoded zerolog fields into a Record. at is the time the
// event reached the writer. zerolog stamps events to the second, so at is
// used unless the event's own timestamp lies outside the two seconds before it.
func newRecord(level zerolog.Level, at time.Time, fields map[string]any) Record {
	rec := Record{Level: LevelName(level), Time: at}

	if ts, ok := fields[zerolog.TimestampFieldName].(string); ok {
		if t, ok := parseTimestamp(ts); ok {
			if d := at.Sub(t); d < 0 || d >= 2*time.Second {
				rec.Time = t
			}
		}
	}
	rec.Message, _ = fields[zerolog.MessageFieldName].(string)
	rec.Logger, _ = fields[LoggerFieldName].(string)
	rec.Channel, _ = fields[ChannelFieldName].(string)
	if caller, ok := fields[zerolog.CallerFieldName].(string); ok {
		rec.Caller = filepath.Base(caller)
	}

	for _, k := range []string{
		zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName,
		zerolog.CallerFieldName, LoggerFieldName, ChannelFieldName,
	} {
		delete(fields, k)
	}
	rec.Fields = fields
	return rec
}

func parseTimestamp(ts string) (time.Time, bool) {
	if t, err := time.Parse(zerolog.TimeFieldFormat, ts); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// routeWriter fans one zerolog event out to a logger's handlers.
type routeWriter struct {
	handlers []*handler
}

func (w *routeWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

func (w *routeWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	at := time.Now()
	event, err := decodeEvent(p)
	if err != nil {
		return 0, fmt.Errorf("failed to decode log event: %w", err)
	}
	if level == zerolog.NoLevel {
		if s, ok := event[zerolog.LevelFieldName].(string); ok {
			if l, err := zerolog.ParseLevel(s); err == nil {
				level = l
			}
		}
	}

	var first error
	for _, h := range w.handlers {
		if err := h.handle(level, at, event); err != nil && first == nil {
			first = fmt.Errorf("handler %s: %w", h.name, err)
		}
	}
	if first != nil {
		return 0, first
	}
	return len(p), nil
}

func decodeEvent(p []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(p))
	dec.UseNumber()
	var event map[string]any
	if err := dec.Decode(&event); err != nil {
		return nil, err
	}
	return event, nil
}

// ---- Sinks ----

// streamSink writes rendered lines to a plain writer.
type streamSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *streamSink) emit(_ zerolog.Level, rec Record) error {
	line := rec.Text + formatExtras(rec.Fields) + "\n"
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, line)
	return err
}

func (s *streamSink) Close() error { return nil }

// fileSink writes rendered lines to a size-rotated file.
type fileSink struct {
	streamSink
	file *lumberjack.Logger
}

func newFileSink(spec HandlerSpec) (*fileSink, error) {
	switch strings.ToLower(spec.Encoding) {
	case "", "utf-8", "utf8":
	default:
		return nil, fmt.Errorf("unsupported encoding %q", spec.Encoding)
	}
	if spec.Filename == "" {
		return nil, fmt.Errorf("rotating file handler needs a filename")
	}

	lj := &lumberjack.Logger{
		Filename:   spec.Filename,
		MaxSize:    maxSizeMB(spec.MaxBytes),
		MaxBackups: spec.BackupCount,
		LocalTime:  true,
	}
	// lumberjack keeps every old file when MaxBackups is 0. Without backups
	// the file grows instead of rotating.
	if spec.BackupCount <= 0 {
		lj.MaxSize = noRotationMB
	}
	return &fileSink{streamSink: streamSink{w: lj}, file: lj}, nil
}

const noRotationMB = math.MaxInt32

func (s *fileSink) Close() error {
	return s.file.Close()
}

// maxSizeMB converts a byte threshold to lumberjack's megabyte unit,
// rounding up with a minimum of one.
func maxSizeMB(maxBytes int64) int {
	const mib = 1024 * 1024
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	mb := int((maxBytes + mib - 1) / mib)
	if mb < 1 {
		mb = 1
	}
	return mb
}

// richSink renders through zerolog's colorized console writer.
type richSink struct {
	mu sync.Mutex
	cw zerolog.ConsoleWriter
}

func newRichSink(out io.Writer, opts *RichOptions) *richSink {
	if opts == nil {
		opts = &RichOptions{ShowTime: true, ShowLevel: true}
	}
	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	if !opts.ShowTime {
		cw.PartsExclude = append(cw.PartsExclude, zerolog.TimestampFieldName)
	}
	if !opts.ShowLevel {
		cw.PartsExclude = append(cw.PartsExclude, zerolog.LevelFieldName)
	}
	if !opts.ShowPath {
		cw.PartsExclude = append(cw.PartsExclude, zerolog.CallerFieldName)
	}
	return &richSink{cw: cw}
}

func (s *richSink) emit(level zerolog.Level, rec Record) error {
	event := make(map[string]any, len(rec.Fields)+4)
	for k, v := range rec.Fields {
		event[k] = v
	}
	event[zerolog.TimestampFieldName] = rec.Time.Format(time.RFC3339)
	event[zerolog.LevelFieldName] = level.String()
	event[zerolog.MessageFieldName] = rec.Text
	if rec.Caller != "" {
		event[zerolog.CallerFieldName] = rec.Caller
	}

	p, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.cw.Write(p)
	return err
}

func (s *richSink) Close() error { return nil }

// callableSink hands records to a CallableHandler.
type callableSink struct {
	h *CallableHandler
}

func (s *callableSink) emit(_ zerolog.Level, rec Record) error {
	s.h.Handle(rec)
	return nil
}

func (s *callableSink) Close() error { return nil }
