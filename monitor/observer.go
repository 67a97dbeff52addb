package monitor

import (
	"io"
	"sync"
	"sync/atomic"

	log "github.com/cihub/seelog"
	"github.com/pkg/errors"
	"github.com/v-gu/mysqltc/model"
	"github.com/v-gu/mysqltc/outputs"
	"github.com/v-gu/mysqltc/progress"
)

// Status codes handed back to the replication host.
const (
	StatusOK   = 0
	StatusFail = 1
)

var ErrInit = errors.New("rpl stat observer init failed")

const (
	stateNew int32 = iota
	stateRunning
	stateStopped
)

type Options struct {
	Shards int
	// When non-zero, every ReaffirmEvery-th unchanged notification of a
	// server appends its current position again.
	ReaffirmEvery uint64
	Outputs       []outputs.Output
}

// Observer is hooked into binlog transmission. It tracks the last position
// sent to every slave and appends each change to the stat log.
type Observer struct {
	store         *progress.Store
	logger        *progress.Logger
	outputs       []outputs.Output
	reaffirmEvery uint64

	lifecycle sync.Mutex
	state     int32

	appendErrors uint64
}

func NewObserver(opts Options) *Observer {
	var storeOpts []progress.StoreOption
	if opts.ReaffirmEvery > 0 {
		storeOpts = append(storeOpts, progress.WithRepeatCounting())
	}
	return &Observer{
		store:         progress.NewStore(opts.Shards, storeOpts...),
		outputs:       opts.Outputs,
		reaffirmEvery: opts.ReaffirmEvery,
	}
}

// Start takes ownership of sink and starts the outputs. An Observer can be
// started once. When Start fails every output is stopped and the sink is left
// to the caller.
func (o *Observer) Start(sink io.Writer) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()
	if o.state != stateNew {
		return errors.Wrap(ErrInit, "observer already started")
	}
	logger, err := progress.NewLogger(sink)
	if err != nil {
		return errors.Wrap(ErrInit, err.Error())
	}

	for _, out := range o.outputs {
		if err := out.Start(); err != nil {
			stopOutputs(o.outputs)
			return errors.Wrapf(ErrInit, "start output: %v", err)
		}
	}
	o.logger = logger
	atomic.StoreInt32(&o.state, stateRunning)
	return nil
}

// Stop releases the stat log and stops the outputs. Notifications arriving
// after Stop are ignored.
func (o *Observer) Stop() error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()
	if o.state != stateRunning {
		return nil
	}
	atomic.StoreInt32(&o.state, stateStopped)

	err := o.logger.Close()
	if e := stopOutputs(o.outputs); err == nil {
		err = e
	}
	return err
}

// stopOutputs stops every output, started or not, and returns the first error.
func stopOutputs(outs []outputs.Output) (err error) {
	for _, out := range outs {
		if e := out.Stop(); e != nil {
			log.Errorf("stop output: %v", e)
			if err == nil {
				err = e
			}
		}
	}
	return
}

func (o *Observer) OnStreamStart(serverId string, pos model.Position) int {
	return o.handle(serverId, pos)
}

func (o *Observer) OnBeforeUnitSent(serverId string, pos model.Position) int {
	return o.handle(serverId, pos)
}

func (o *Observer) Notify(ev model.Event, serverId, file string, offset uint64) int {
	pos := model.Position{File: file, Offset: offset}
	switch ev {
	case model.EventStreamStart:
		return o.OnStreamStart(serverId, pos)
	case model.EventBeforeUnitSent:
		return o.OnBeforeUnitSent(serverId, pos)
	}
	log.Warnf("unknown transmit event %d from server %s", ev, serverId)
	return StatusFail
}

func (o *Observer) handle(serverId string, pos model.Position) int {
	if atomic.LoadInt32(&o.state) != stateRunning {
		return StatusOK
	}
	res, repeats := o.store.Record(serverId, pos)
	if res == progress.Unchanged && (o.reaffirmEvery == 0 || repeats%o.reaffirmEvery != 0) {
		return StatusOK
	}

	rec := &model.LogRecord{ServerId: serverId, Position: pos}
	if err := o.logger.Append(rec); err == progress.ErrLoggerClosed {
		// lost the race with Stop
		return StatusOK
	} else if err != nil {
		// the stat log gets a gap; replication goes on
		atomic.AddUint64(&o.appendErrors, 1)
		log.Errorf("write rpl stat log: %v", err)
	}
	for _, out := range o.outputs {
		out.SaveMessage(rec)
	}
	return StatusOK
}

func (o *Observer) Store() *progress.Store {
	return o.store
}

// AppendErrors is the number of changes that could not be written to the
// stat log.
func (o *Observer) AppendErrors() uint64 {
	return atomic.LoadUint64(&o.appendErrors)
}
