package influxdb

import (
	"context"
	"encoding/json"
	"math"
	"time"

	log "github.com/cihub/seelog"
	client "github.com/influxdata/influxdb/client/v2"
	"github.com/pkg/errors"
	"github.com/v-gu/mysqltc/config"
	"github.com/v-gu/mysqltc/model"
)

const measurement = "replication_progress"

type InfluxdbOutput struct {
	msgs    chan *model.LogRecord
	done    chan struct{}
	stopped chan struct{}
	ctx     context.Context
	started bool

	cfg *InfluxdbConfig

	influxdb client.Client
}

type InfluxdbConfig struct {
	Hosts     string `json:"hosts"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Db        string `json:"db"`
	Threshold int    `json:"threshold"`
	// seconds
	MaxTimeGap int64 `json:"maxTimeGap"`
	QueueSize  int   `json:"queueSize"`
}

func New(ctx context.Context, configStr []byte, global *config.Config) (i *InfluxdbOutput, err error) {
	cfg := InfluxdbConfig{QueueSize: global.Stat.QueueSize}
	if err = json.Unmarshal(configStr, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse influxdb output config")
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 10
	}
	if cfg.MaxTimeGap <= 0 {
		cfg.MaxTimeGap = 10
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = config.DefaultQueueSize
	}

	i = &InfluxdbOutput{
		msgs:    make(chan *model.LogRecord, cfg.QueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		ctx:     ctx,
		cfg:     &cfg,
	}
	// Create a new HTTPClient
	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     cfg.Hosts,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create influxdb client")
	}
	i.influxdb = c
	return
}

func (i *InfluxdbOutput) newBatch() client.BatchPoints {
	bp, _ := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  i.cfg.Db,
		Precision: "s",
	})
	return bp
}

func (i *InfluxdbOutput) Start() error {
	i.started = true
	go func() {
		defer close(i.stopped)
		bp := i.newBatch()
		lastCommit := time.Now().Unix()
		ticker := time.NewTicker(time.Duration(i.cfg.MaxTimeGap) * time.Second)
		defer ticker.Stop()

		flush := func() {
			if len(bp.Points()) == 0 {
				return
			}
			if err := i.influxdb.Write(bp); err != nil {
				log.Error("error in insert points ", err.Error())
			}
			bp = i.newBatch()
			lastCommit = time.Now().Unix()
		}

		for {
			select {
			case msg := <-i.msgs:
				pt, err := newPoint(msg, time.Now())
				if err != nil {
					log.Error("error in add point ", err.Error())
					continue
				}
				bp.AddPoint(pt)
				if len(bp.Points()) > i.cfg.Threshold || time.Now().Unix()-lastCommit >= i.cfg.MaxTimeGap {
					flush()
				}
			case <-ticker.C:
				flush()
			case <-i.done:
				for {
					select {
					case msg := <-i.msgs:
						if pt, err := newPoint(msg, time.Now()); err == nil {
							bp.AddPoint(pt)
						}
					default:
						flush()
						return
					}
				}
			case <-i.ctx.Done():
				flush()
				return
			}
		}
	}()

	return nil
}

func newPoint(msg *model.LogRecord, tm time.Time) (*client.Point, error) {
	tags := map[string]string{
		"server_id":   msg.ServerId,
		"binlog_file": msg.File,
	}
	// influxdb integers are signed; offsets past MaxInt64 are clamped
	offset := int64(math.MaxInt64)
	if msg.Offset <= math.MaxInt64 {
		offset = int64(msg.Offset)
	}
	//offset is the sql keyword, so we use offsize
	fields := map[string]interface{}{
		"offsize": offset,
	}
	return client.NewPoint(measurement, tags, fields, tm)
}

func (i *InfluxdbOutput) SaveMessage(msg *model.LogRecord) {
	select {
	case <-i.done:
	case i.msgs <- msg:
	default:
		log.Warnf("influxdb output queue full, dropping progress of server %s", msg.ServerId)
	}
}

func (i *InfluxdbOutput) Stop() error {
	close(i.done)
	if i.started {
		<-i.stopped
	}
	return i.influxdb.Close()
}
