package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"lanarena.io/internal/game"
)

const (
	hourStamp = "2006-01-02-15"
	dayStamp  = "2006-01-02"
)

// RotatingWriter appends newline-terminated records to zstd-compressed
// segments named <prefix>-<stamp>.jsonl.zst, one segment per rotation period.
// Each record is flushed through the encoder so a crash loses at most the
// record being written. Reopening a segment appends a new zstd frame.
type RotatingWriter struct {
	dir    string
	prefix string
	period time.Duration
	level  zstd.EncoderLevel
	now    func() time.Time

	mu      sync.Mutex
	segment time.Time
	path    string
	f       *os.File
	enc     *zstd.Encoder
	bw      *bufio.Writer
}

type Option func(*RotatingWriter)

// WithRotation sets the segment length. It is rounded down to whole hours;
// anything under an hour means hourly.
func WithRotation(d time.Duration) Option {
	return func(w *RotatingWriter) {
		d = d.Truncate(time.Hour)
		if d < time.Hour {
			d = time.Hour
		}
		w.period = d
	}
}

func WithLevel(l zstd.EncoderLevel) Option {
	return func(w *RotatingWriter) { w.level = l }
}

// WithClock replaces time.Now when choosing the segment.
func WithClock(now func() time.Time) Option {
	return func(w *RotatingWriter) { w.now = now }
}

func NewRotatingWriter(dir, prefix string, opts ...Option) *RotatingWriter {
	w := &RotatingWriter{
		dir:    dir,
		prefix: prefix,
		period: time.Hour,
		level:  zstd.SpeedFastest,
		now:    time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// AppendLine writes rec followed by a newline. rec must not contain one.
func (w *RotatingWriter) AppendLine(rec []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	seg := w.now().UTC().Truncate(w.period)
	if w.bw == nil || !seg.Equal(w.segment) {
		if err := w.openLocked(seg); err != nil {
			return err
		}
	}
	if _, err := w.bw.Write(rec); err != nil {
		return err
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

// Segment is the path of the open segment, or "" when none is open.
func (w *RotatingWriter) Segment() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *RotatingWriter) stamp(seg time.Time) string {
	if w.period%(24*time.Hour) == 0 {
		return seg.Format(dayStamp)
	}
	return seg.Format(hourStamp)
}

func (w *RotatingWriter) openLocked(seg time.Time) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(w.dir, w.prefix+"-"+w.stamp(seg)+".jsonl.zst")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(w.level))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc, w.bw = f, enc, bufio.NewWriterSize(enc, 32*1024)
	w.segment, w.path = seg, path
	return nil
}

func (w *RotatingWriter) closeLocked() error {
	if w.f == nil {
		return nil
	}
	ferr := w.bw.Flush()
	if err := w.enc.Close(); err != nil && ferr == nil {
		ferr = err
	}
	if err := w.f.Close(); err != nil && ferr == nil {
		ferr = err
	}
	w.f, w.enc, w.bw = nil, nil, nil
	w.segment, w.path = time.Time{}, ""
	return ferr
}

// EventLogger records session and match lifecycle events under
// <dataDir>/events. It implements game.EventLogger.
type EventLogger struct {
	w *RotatingWriter
}

func NewEventLogger(dataDir string, opts ...Option) *EventLogger {
	return &EventLogger{w: NewRotatingWriter(filepath.Join(dataDir, "events"), "events", opts...)}
}

func (l *EventLogger) WriteEvent(e game.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return l.w.AppendLine(b)
}

func (l *EventLogger) Close() error { return l.w.Close() }
