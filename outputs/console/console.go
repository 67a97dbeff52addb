package console

import (
	"context"
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"
	log "github.com/cihub/seelog"
	"github.com/v-gu/mysqltc/config"
	"github.com/v-gu/mysqltc/model"
)

type ConsoleOutput struct {
	msgs    chan *model.LogRecord
	done    chan struct{}
	stopped chan struct{}
	ctx     context.Context
	started bool

	Format    string `json:"format"`
	QueueSize int    `json:"queueSize"`

	logger *logrus.Logger
}

func New(ctx context.Context, raw []byte, cfg *config.Config) (output *ConsoleOutput, err error) {
	output = &ConsoleOutput{
		ctx:       ctx,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		QueueSize: cfg.Stat.QueueSize,
	}
	if len(raw) > 0 {
		if err = json.Unmarshal(raw, output); err != nil {
			return nil, err
		}
	}
	if output.QueueSize <= 0 {
		output.QueueSize = config.DefaultQueueSize
	}
	output.msgs = make(chan *model.LogRecord, output.QueueSize)

	output.logger = logrus.New()
	output.logger.Out = os.Stdout
	if output.Format == "text" {
		output.logger.Formatter = &logrus.TextFormatter{DisableColors: true}
	} else {
		output.logger.Formatter = &logrus.JSONFormatter{}
	}
	return
}

func (output *ConsoleOutput) Start() error {
	output.started = true
	go func() {
		defer close(output.stopped)
		for {
			select {
			case msg := <-output.msgs:
				output.print(msg)
			case <-output.done:
				for {
					select {
					case msg := <-output.msgs:
						output.print(msg)
					default:
						return
					}
				}
			case <-output.ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (output *ConsoleOutput) print(msg *model.LogRecord) {
	output.logger.WithFields(logrus.Fields{
		"server_id":   msg.ServerId,
		"binlog_file": msg.File,
		"offset":      msg.Offset,
	}).Info("replication progress")
}

func (output *ConsoleOutput) SaveMessage(msg *model.LogRecord) {
	select {
	case <-output.done:
	case output.msgs <- msg:
	default:
		log.Warnf("console output queue full, dropping progress of server %s", msg.ServerId)
	}
}

func (output *ConsoleOutput) Stop() error {
	close(output.done)
	if output.started {
		<-output.stopped
	}
	return nil
}
