package monitor

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync/atomic"

	log "github.com/cihub/seelog"
	"github.com/pkg/errors"
	"github.com/v-gu/mysqltc/protocol"
)

// Fetcher feeds transmit notifications read from a line stream into an
// Observer.
type Fetcher struct {
	observer *Observer
	r        io.Reader

	lines   uint64
	skipped uint64
}

func NewFetcher(observer *Observer, r io.Reader) *Fetcher {
	return &Fetcher{
		observer: observer,
		r:        r,
	}
}

// Run dispatches notifications until the input is exhausted or ctx is done.
func (f *Fetcher) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(f.r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		atomic.AddUint64(&f.lines, 1)
		n, err := protocol.ParseNotification(line)
		if err != nil {
			atomic.AddUint64(&f.skipped, 1)
			log.Warnf("skip notification %q: %v", line, err)
			continue
		}
		if code := f.observer.Notify(n.Event, n.ServerId, n.Position.File, n.Position.Offset); code != StatusOK {
			log.Warnf("notification %q returned status %d", line, code)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read notifications")
	}
	return nil
}

// Stats reports how many notification lines were read and how many of them
// were malformed.
func (f *Fetcher) Stats() (lines, skipped uint64) {
	return atomic.LoadUint64(&f.lines), atomic.LoadUint64(&f.skipped)
}
