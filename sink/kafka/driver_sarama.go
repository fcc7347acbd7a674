package kafka

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"kbcomponent/internal/table"
	"kbcomponent/sink"
)

type Config struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
	Acks    int16    `koanf:"required_acks"` // 0,1,-1
	// KeyField names the record field used as message key; empty = no key.
	KeyField string `koanf:"key_field"`
}

// Enabled reports whether the block carries enough to publish.
func (c Config) Enabled() bool { return len(c.Brokers) > 0 && c.Topic != "" }

// newProducer is swapped in tests.
var newProducer = func(brokers []string, sc *sarama.Config) (sarama.SyncProducer, error) {
	return sarama.NewSyncProducer(brokers, sc)
}

type driver struct {
	cfg Config
	p   sarama.SyncProducer
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config")
	}
	if !cfg.Enabled() {
		return errors.New("kafka-sink: brokers and topic are required")
	}
	d.cfg = cfg

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true
	var err error
	d.p, err = newProducer(cfg.Brokers, sc)
	if err != nil {
		return fmt.Errorf("kafka-sink: new producer: %w", err)
	}
	return nil
}

func (d *driver) Push(r table.Record) error {
	val, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("kafka-sink: encode row: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Value: sarama.ByteEncoder(val),
	}
	if d.cfg.KeyField != "" {
		if k, ok := r.Get(d.cfg.KeyField); ok {
			msg.Key = sarama.StringEncoder(k)
		}
	}
	if _, _, err := d.p.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka-sink: send: %w", err)
	}
	return nil
}

func (d *driver) Flush() error { return nil }

func (d *driver) Close() error {
	if d.p == nil {
		return nil
	}
	err := d.p.Close()
	d.p = nil
	return err
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
