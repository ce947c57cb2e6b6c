// Package eventlog appends decoded game events to hourly rotated,
// zstd-compressed JSONL files.
package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"gamechain/internal/gametx"
)

const hourLayout = "2006-01-02-15"

// segment is one open hourly file. Every record is flushed through the
// compressor, so a crash loses at most the record being written.
type segment struct {
	hour string
	file *os.File
	zw   *zstd.Encoder
	buf  *bufio.Writer
}

func openSegment(path, hour string) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{hour: hour, file: f, zw: zw, buf: bufio.NewWriterSize(zw, 32*1024)}, nil
}

func (s *segment) append(line []byte) error {
	if _, err := s.buf.Write(line); err != nil {
		return err
	}
	if err := s.buf.WriteByte('\n'); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.zw.Flush()
}

func (s *segment) close() error {
	return errors.Join(s.buf.Flush(), s.zw.Close(), s.file.Close())
}

// JSONLZstdWriter writes one JSON document per line into
// <dir>/<prefix>-<UTC hour>.jsonl.zst. Each hour's file holds one zstd frame
// per writer session.
type JSONLZstdWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu  sync.Mutex
	cur *segment
}

func NewJSONLZstdWriter(dir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{dir: dir, prefix: prefix, now: time.Now}
}

func (w *JSONLZstdWriter) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format(hourLayout)
	if w.cur == nil || w.cur.hour != hour {
		if err := w.closeLocked(); err != nil {
			return err
		}
		seg, err := openSegment(w.pathFor(hour), hour)
		if err != nil {
			return err
		}
		w.cur = seg
	}
	return w.cur.append(line)
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) closeLocked() error {
	if w.cur == nil {
		return nil
	}
	err := w.cur.close()
	w.cur = nil
	return err
}

func (w *JSONLZstdWriter) pathFor(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// GameEventLogger writes one JSONL line per decoded game input.
type GameEventLogger struct{ w *JSONLZstdWriter }

func NewGameEventLogger(home string) *GameEventLogger {
	return &GameEventLogger{w: NewJSONLZstdWriter(filepath.Join(home, "events"), "game")}
}

func (l *GameEventLogger) WriteEvents(recs []gametx.EventRecord) error {
	for _, r := range recs {
		if err := l.w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func (l *GameEventLogger) Close() error { return l.w.Close() }
