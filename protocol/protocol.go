package protocol

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/v-gu/mysqltc/model"
)

// Notification is one binlog transmit event reported by the replication host.
type Notification struct {
	Event    model.Event
	ServerId string
	Position model.Position
}

var ErrMalformed = errors.New("malformed notification")

// ParseNotification parses a line of the form
//
//	<start|send> <server_id> <binlog_file> <offset>
func ParseNotification(line string) (n Notification, err error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return n, errors.Wrapf(ErrMalformed, "want 4 fields, got %d", len(fields))
	}
	switch fields[0] {
	case "start":
		n.Event = model.EventStreamStart
	case "send":
		n.Event = model.EventBeforeUnitSent
	default:
		return n, errors.Wrapf(ErrMalformed, "unknown event %q", fields[0])
	}
	offset, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return n, errors.Wrapf(ErrMalformed, "offset %q", fields[3])
	}
	n.ServerId = fields[1]
	n.Position = model.Position{File: fields[2], Offset: offset}
	return n, nil
}
