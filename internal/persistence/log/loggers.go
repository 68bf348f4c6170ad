package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"shardthief.gg/internal/sim/session"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// TickLogger writes one JSONL entry per session tick (compressed).
type TickLogger struct{ w *JSONLZstdWriter }

func NewTickLogger(dataDir string) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "events"), "events")}
}

func (l *TickLogger) WriteTick(v session.TickLogEntry) error { return l.w.Write(v) }
func (l *TickLogger) Close() error                           { return l.w.Close() }

// RoundRecord is one line of the rounds log. Exactly one of the payloads is set.
type RoundRecord struct {
	Kind     string                 `json:"kind"` // START | TRANSFER | FINISH
	Start    *session.RoundStart    `json:"start,omitempty"`
	Transfer *session.RoundTransfer `json:"transfer,omitempty"`
	Finish   *session.RoundFinish   `json:"finish,omitempty"`
}

// RoundLogger records round starts, shard transfers and finishes. Write
// errors are reported to onErr since the session sink has no error return.
type RoundLogger struct {
	w     *JSONLZstdWriter
	onErr func(error)
}

func NewRoundLogger(dataDir string, onErr func(error)) *RoundLogger {
	if onErr == nil {
		onErr = func(error) {}
	}
	return &RoundLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "rounds"), "rounds"), onErr: onErr}
}

func (l *RoundLogger) RoundStarted(r session.RoundStart) {
	l.write(RoundRecord{Kind: "START", Start: &r})
}

func (l *RoundLogger) RoundTransferred(t session.RoundTransfer) {
	l.write(RoundRecord{Kind: "TRANSFER", Transfer: &t})
}

func (l *RoundLogger) RoundFinished(r session.RoundFinish) {
	l.write(RoundRecord{Kind: "FINISH", Finish: &r})
}

func (l *RoundLogger) write(rec RoundRecord) {
	if err := l.w.Write(rec); err != nil {
		l.onErr(fmt.Errorf("round log %s: %w", rec.Kind, err))
	}
}

func (l *RoundLogger) Close() error { return l.w.Close() }

var _ session.Sink = (*RoundLogger)(nil)
