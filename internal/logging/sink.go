package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// FileSink is an slog.Handler that appends one line per record to a file:
//
//	<epoch-millis> <message> key=value ...
//
// Write errors are dropped; logging must never fail the caller.
type FileSink struct {
	out    *sinkFile
	level  slog.Leveler
	prefix string // preformatted attrs from WithAttrs
	group  string
}

type sinkFile struct {
	mu sync.Mutex
	f  *os.File
}

// OpenFileSink opens path for appending, creating it and its directory if
// needed. The file stays open until Close.
func OpenFileSink(path string, level slog.Leveler) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("log sink: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("log sink: %w", err)
	}
	return &FileSink{out: &sinkFile{f: f}, level: level}, nil
}

// Close closes the underlying file. Handlers derived via WithAttrs or
// WithGroup share it.
func (s *FileSink) Close() error {
	s.out.mu.Lock()
	defer s.out.mu.Unlock()
	return s.out.f.Close()
}

func (s *FileSink) Enabled(_ context.Context, l slog.Level) bool {
	threshold := slog.LevelInfo
	if s.level != nil {
		threshold = s.level.Level()
	}
	return l >= threshold
}

func (s *FileSink) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(r.Time.UnixMilli(), 10))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteString(s.prefix)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, s.group, a)
		return true
	})
	b.WriteByte('\n')

	s.out.mu.Lock()
	_, _ = s.out.f.WriteString(b.String())
	s.out.mu.Unlock()
	return nil
}

func (s *FileSink) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(s.prefix)
	for _, a := range attrs {
		appendAttr(&b, s.group, a)
	}
	c := *s
	c.prefix = b.String()
	return &c
}

func (s *FileSink) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	c := *s
	c.group = joinKey(s.group, name)
	return &c
}

func appendAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		g := joinKey(group, a.Key)
		for _, ga := range a.Value.Group() {
			appendAttr(b, g, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(joinKey(group, a.Key))
	b.WriteByte('=')
	v := a.Value.String()
	if strings.ContainsAny(v, " \t\n\"=") {
		v = strconv.Quote(v)
	}
	b.WriteString(v)
}

func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	if key == "" {
		return group
	}
	return group + "." + key
}
