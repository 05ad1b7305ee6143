// Package actionlog keeps the append-only audit trail: one line per
// attempted command, written through an O_APPEND handle so lines stay
// whole. Logging failures are reported to zap, never to the caller.
package actionlog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Log appends command records to a file.
type Log struct {
	mu   sync.Mutex
	file *os.File
	log  *zap.Logger
	now  func() time.Time
}

// Open opens (or creates) the audit file at path.
func Open(path string, lg *zap.Logger) (*Log, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open action log")
	}
	return &Log{file: f, log: lg.Named("actions"), now: time.Now}, nil
}

// Record appends one action line and mirrors it to the process log.
func (l *Log) Record(name string, id int64, command string) {
	ts := l.now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%s] %s (%d) ran: %s\n", ts, name, id, command)

	l.mu.Lock()
	_, err := l.file.WriteString(line)
	l.mu.Unlock()
	if err != nil {
		l.log.Warn("action log write failed", zap.Error(err))
	}
	l.log.Info("action",
		zap.String("user", name),
		zap.Int64("id", id),
		zap.String("command", command))
}

// Close releases the underlying file.
func (l *Log) Close() error {
	return l.file.Close()
}
