package delivery

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"agentdesk/pkg/telemetry"
)

// KafkaQueue is the broker-backed queue for deployments that already run
// Kafka. Commit offsets are the ack: an uncommitted message is redelivered
// to the consumer group, giving the same at-least-once contract as the
// storage backend.
type KafkaQueue struct {
	writer *kafka.Writer
	reader *kafka.Reader
}

// NewKafkaQueue builds a producer/consumer pair on one topic.
func NewKafkaQueue(brokers []string, topic, groupID string) *KafkaQueue {
	return &KafkaQueue{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
	}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, name string, payload []byte) (string, error) {
	env := envelope{ID: uuid.NewString(), Name: name, Payload: append([]byte(nil), payload...)}
	b, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	msg := kafka.Message{Key: []byte(env.ID), Value: b}
	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		telemetry.QueueDropped.Inc()
		return "", err
	}
	telemetry.QueueEnqueued.Inc()
	return env.ID, nil
}

func (q *KafkaQueue) Dequeue(ctx context.Context) (*Item, error) {
	for {
		msg, err := q.reader.FetchMessage(ctx)
		if err != nil {
			return nil, err
		}
		var env envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			// skip poison messages; commit so they are not redelivered forever
			_ = q.reader.CommitMessages(ctx, msg)
			continue
		}
		it := &Item{ID: env.ID, Name: env.Name, Payload: env.Payload}
		m := msg
		it.ack = func() error {
			return q.reader.CommitMessages(context.Background(), m)
		}
		return it, nil
	}
}

func (q *KafkaQueue) Close() error {
	if err := q.writer.Close(); err != nil {
		_ = q.reader.Close()
		return err
	}
	return q.reader.Close()
}
