// Package notifysvc publishes record changes.
package notifysvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes changes as JSON messages keyed by table, one topic per table under a common prefix.
type KafkaNotifier struct {
	brokers []string
	prefix  string
	logger  core.Logger

	mu        sync.Mutex
	writers   map[string]messageWriter
	newWriter func(topic string) messageWriter
}

var _ record.Notifier = (*KafkaNotifier)(nil)

func NewKafkaNotifier(conf *core.Config, logger core.Logger) *KafkaNotifier {
	n := &KafkaNotifier{
		brokers: conf.Kafka.Brokers,
		prefix:  conf.Kafka.Topic,
		logger:  logger,
		writers: make(map[string]messageWriter),
	}
	n.newWriter = n.kafkaWriter
	return n
}

func (n *KafkaNotifier) kafkaWriter(topic string) messageWriter {
	return &kafka.Writer{
		Addr:                   kafka.TCP(n.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				n.logger.Error("publishing record changes: "+err.Error(), err, map[string]interface{}{
					"topic":    topic,
					"messages": len(msgs),
				})
			}
		},
	}
}

// topic returns the topic of a table, e.g. "jamii.records.event".
func (n *KafkaNotifier) topic(table string) string {
	return n.prefix + "." + table
}

func (n *KafkaNotifier) writerForTopic(topic string) messageWriter {
	n.mu.Lock()
	defer n.mu.Unlock()

	if w, ok := n.writers[topic]; ok {
		return w
	}
	w := n.newWriter(topic)
	n.writers[topic] = w
	return w
}

func (n *KafkaNotifier) Notify(ctx context.Context, change record.Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return errors.Wrap(err, "encoding change")
	}
	msg := kafka.Message{
		Key:   []byte(change.Table),
		Value: payload,
		Time:  change.At,
		Headers: []kafka.Header{
			{Key: "op", Value: []byte(change.Op)},
		},
	}
	if err := n.writerForTopic(n.topic(change.Table)).WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "writing to %s", n.topic(change.Table))
	}
	return nil
}

// Close flushes and releases all writers.
func (n *KafkaNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var firstErr error
	for topic, w := range n.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(n.writers, topic)
	}
	return firstErr
}
