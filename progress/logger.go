package progress

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/v-gu/mysqltc/model"
)

var (
	ErrLoggerClosed = errors.New("progress: stat log is closed")
	ErrNoSink       = errors.New("progress: no stat log sink")
)

// Logger appends one line per accepted position change to the stat log.
// Lines written by concurrent callers never interleave.
type Logger struct {
	mtx  sync.Mutex
	sink io.Writer
}

func NewLogger(sink io.Writer) (*Logger, error) {
	if sink == nil {
		return nil, ErrNoSink
	}
	return &Logger{sink: sink}, nil
}

// OpenFile opens path for appending, creating it when missing.
func OpenFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open stat log %s", path)
	}
	return f, nil
}

func (l *Logger) Append(rec *model.LogRecord) error {
	line := rec.Line()

	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.sink == nil {
		return ErrLoggerClosed
	}
	n, err := l.sink.Write(line)
	if err != nil {
		return errors.Wrapf(err, "append stat log for server %s", rec.ServerId)
	}
	if n != len(line) {
		return errors.Wrapf(io.ErrShortWrite, "append stat log for server %s", rec.ServerId)
	}
	return nil
}

// Close syncs and releases the sink. Appends after Close fail with
// ErrLoggerClosed.
func (l *Logger) Close() (err error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.sink == nil {
		return nil
	}
	sink := l.sink
	l.sink = nil

	if f, ok := sink.(*os.File); ok {
		if e := f.Sync(); e != nil {
			err = errors.Wrap(e, "sync stat log")
		}
	}
	if c, ok := sink.(io.Closer); ok {
		if e := c.Close(); e != nil && err == nil {
			err = errors.Wrap(e, "close stat log")
		}
	}
	return
}
