package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	log "github.com/cihub/seelog"
	"github.com/pkg/errors"
	"github.com/v-gu/mysqltc/config"
	"github.com/v-gu/mysqltc/model"
)

type KafkaOutput struct {
	msgs    chan *model.LogRecord
	done    chan struct{}
	stopped chan struct{}

	Brokers   string `json:"brokers"`
	Topic     string `json:"topic"`
	Version   string `json:"version"`
	QueueSize int    `json:"queueSize"`

	Sasl config.Sasl `json:"sasl"`
	// name of an entry in the top level ClientProfile map
	ClientProfile string `json:"clientProfile"`

	producer sarama.AsyncProducer
	wg       sync.WaitGroup
	ctx      context.Context
	started  bool
}

type progressMessage struct {
	ServerId   string `json:"server_id"`
	BinlogFile string `json:"binlog_file"`
	Offset     uint64 `json:"offset"`
	Its        int64  `json:"its"`
}

func New(ctx context.Context, raw []byte, cfg *config.Config) (output *KafkaOutput, err error) {
	output = &KafkaOutput{
		ctx:           ctx,
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
		QueueSize:     cfg.Stat.QueueSize,
		ClientProfile: "default",
	}
	if err = json.Unmarshal(raw, output); err != nil {
		return nil, errors.Wrap(err, "parse kafka output config")
	}
	if output.Brokers == "" || output.Topic == "" {
		return nil, errors.New("kafka output needs brokers and topic")
	}
	if output.QueueSize <= 0 {
		output.QueueSize = config.DefaultQueueSize
	}
	profile, ok := cfg.ClientProfile[output.ClientProfile]
	if !ok {
		return nil, errors.Errorf("kafka output: unknown client profile %q", output.ClientProfile)
	}
	output.msgs = make(chan *model.LogRecord, output.QueueSize)

	kcfg, err := BuildKafkaConfig(*profile, output.Sasl, output.Version)
	if err != nil {
		return nil, err
	}

	output.producer, err = sarama.NewAsyncProducer(strings.Split(output.Brokers, ","), kcfg)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}

	output.wg.Add(2)
	go output.successWorker(output.producer.Successes())
	go output.errorWorker(output.producer.Errors())
	return
}

func (output *KafkaOutput) Start() error {
	output.started = true
	go func() {
		defer close(output.stopped)
		for {
			select {
			case msg := <-output.msgs:
				output.send(msg)
			case <-output.done:
				for {
					select {
					case msg := <-output.msgs:
						output.send(msg)
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

func (output *KafkaOutput) send(msg *model.LogRecord) {
	bs, err := json.Marshal(progressMessage{
		ServerId:   msg.ServerId,
		BinlogFile: msg.File,
		Offset:     msg.Offset,
		Its:        time.Now().Unix(),
	})
	if err != nil {
		log.Errorf("marshal progress of server %s: %v", msg.ServerId, err)
		return
	}
	// keyed by server id so one consumer's changes stay ordered in a partition
	output.producer.Input() <- &sarama.ProducerMessage{
		Topic: output.Topic,
		Key:   sarama.StringEncoder(msg.ServerId),
		Value: sarama.ByteEncoder(bs),
	}
}

func (output *KafkaOutput) SaveMessage(msg *model.LogRecord) {
	select {
	case <-output.done:
	case output.msgs <- msg:
	default:
		log.Warnf("kafka output queue full, dropping progress of server %s", msg.ServerId)
	}
}

func (output *KafkaOutput) Stop() error {
	close(output.done)
	if output.started {
		<-output.stopped
	}
	output.producer.AsyncClose()
	output.wg.Wait()
	return nil
}

func (output *KafkaOutput) successWorker(ch <-chan *sarama.ProducerMessage) {
	defer output.wg.Done()
	for range ch {

	}
}

func (output *KafkaOutput) errorWorker(ch <-chan *sarama.ProducerError) {
	defer output.wg.Done()
	for errMsg := range ch {
		log.Error("send msg error" + errMsg.Error())
	}
}
