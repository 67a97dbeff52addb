package outputs

import (
	"context"

	"github.com/pkg/errors"
	"github.com/v-gu/mysqltc/config"
	"github.com/v-gu/mysqltc/model"
	"github.com/v-gu/mysqltc/outputs/console"
	"github.com/v-gu/mysqltc/outputs/influxdb"
	"github.com/v-gu/mysqltc/outputs/kafka"
)

// Output receives every accepted position change. SaveMessage must not block.
// Stop releases the output whether or not it was started.
type Output interface {
	SaveMessage(msg *model.LogRecord)
	Start() error
	Stop() error
}

// NewOutput builds the output named typ from its raw config. cfg supplies the
// shared defaults such as the queue size and the kafka client profiles.
func NewOutput(typ string, ctx context.Context, bs []byte, cfg *config.Config) (opt Output, err error) {
	switch typ {
	case "kafka":
		opt, err = kafka.New(ctx, bs, cfg)
	case "influxdb":
		opt, err = influxdb.New(ctx, bs, cfg)
	case "console":
		opt, err = console.New(ctx, bs, cfg)
	default:
		err = errors.New("No Match output type:" + typ)
	}
	return
}
