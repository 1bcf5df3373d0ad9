// Package runlog collects the structured event log of one scenario run. The
// Collector is an slog.Handler that mirrors records to a base handler (so
// events still reach the console in real time) while buffering them for the
// report sink, which receives the full transcript at scenario end.
package runlog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// CategoryKey is the attribute key components use to tag log records with a
// report category (header, metric, book). Plain records fall back to their
// level name.
const CategoryKey = "category"

const (
	CategoryHeader = "header"
	CategoryMetric = "metric"
	CategoryBook   = "book"
)

// Entry is one buffered log record.
type Entry struct {
	Time     time.Time
	Level    slog.Level
	Category string
	Message  string
	Attrs    map[string]string
}

type buffer struct {
	mu      sync.Mutex
	entries []Entry
}

// Collector buffers scenario log entries. Derived handlers (WithAttrs) share
// the parent's buffer. The zero value is not usable; use NewCollector.
type Collector struct {
	buf   *buffer
	base  slog.Handler
	attrs []slog.Attr
}

// NewCollector wraps base. A nil base discards the mirrored output and only
// buffers.
func NewCollector(base slog.Handler) *Collector {
	return &Collector{buf: &buffer{}, base: base}
}

// Logger returns a slog.Logger writing through this collector.
func (c *Collector) Logger() *slog.Logger {
	return slog.New(c)
}

// Enabled implements slog.Handler. Everything is buffered; the base handler
// applies its own level filtering on the mirrored copy.
func (c *Collector) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (c *Collector) Handle(ctx context.Context, rec slog.Record) error {
	e := Entry{
		Time:     rec.Time,
		Level:    rec.Level,
		Category: strings.ToLower(rec.Level.String()),
		Message:  rec.Message,
		Attrs:    map[string]string{},
	}
	collect := func(a slog.Attr) {
		if a.Key == CategoryKey {
			e.Category = a.Value.String()
			return
		}
		e.Attrs[a.Key] = a.Value.String()
	}
	for _, a := range c.attrs {
		collect(a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})

	c.buf.mu.Lock()
	c.buf.entries = append(c.buf.entries, e)
	c.buf.mu.Unlock()

	if c.base != nil && c.base.Enabled(ctx, rec.Level) {
		return c.base.Handle(ctx, rec)
	}
	return nil
}

// WithAttrs implements slog.Handler. The derived handler writes into the
// same buffer.
func (c *Collector) WithAttrs(attrs []slog.Attr) slog.Handler {
	var base slog.Handler
	if c.base != nil {
		base = c.base.WithAttrs(attrs)
	}
	merged := append(append([]slog.Attr{}, c.attrs...), attrs...)
	return &Collector{buf: c.buf, base: base, attrs: merged}
}

// WithGroup implements slog.Handler. Groups are flattened; the transcript is
// a flat event list.
func (c *Collector) WithGroup(name string) slog.Handler {
	return c
}

// Entries returns a copy of the buffered entries.
func (c *Collector) Entries() []Entry {
	c.buf.mu.Lock()
	defer c.buf.mu.Unlock()
	out := make([]Entry, len(c.buf.entries))
	copy(out, c.buf.entries)
	return out
}

// Reset drops all buffered entries. Called between scenarios so no state
// crosses run boundaries.
func (c *Collector) Reset() {
	c.buf.mu.Lock()
	c.buf.entries = nil
	c.buf.mu.Unlock()
}

// Render produces the plain-text transcript handed to the report sink.
func (c *Collector) Render() string {
	var b strings.Builder
	for _, e := range c.Entries() {
		if e.Category == CategoryHeader {
			b.WriteString("\n")
			b.WriteString(strings.Repeat("=", 70))
			b.WriteString("\n")
			b.WriteString(e.Message)
			b.WriteString("\n")
			b.WriteString(strings.Repeat("=", 70))
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "[%s] %-7s %s", e.Time.Format("15:04:05"), strings.ToUpper(e.Category), e.Message)
		keys := make([]string, 0, len(e.Attrs))
		for k := range e.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, e.Attrs[k])
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Flush renders the transcript and attaches it to the sink.
func (c *Collector) Flush(sink Sink, name string) error {
	return sink.Attach(name, "text/plain", []byte(c.Render()))
}
