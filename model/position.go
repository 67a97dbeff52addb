package model

import "strconv"

type Event int

const (
	EventStreamStart Event = iota
	EventBeforeUnitSent
)

func (e Event) String() string {
	switch e {
	case EventStreamStart:
		return "start"
	case EventBeforeUnitSent:
		return "send"
	}
	return "unknown"
}

// Position is how far into which binlog file a consumer has been sent data.
type Position struct {
	File   string
	Offset uint64
}

func (p Position) Valid() bool {
	return p.File != ""
}

type LogRecord struct {
	ServerId string
	Position
}

// Line renders the record in the stat log format. Field order and labels are
// consumed by log scrapers and must not change.
func (r *LogRecord) Line() []byte {
	buf := make([]byte, 0, 48+len(r.ServerId)+len(r.File))
	buf = append(buf, "server_id:"...)
	buf = append(buf, r.ServerId...)
	buf = append(buf, ", binlog_file:"...)
	buf = append(buf, r.File...)
	buf = append(buf, ", offset:"...)
	buf = strconv.AppendUint(buf, r.Offset, 10)
	return append(buf, '\n')
}
