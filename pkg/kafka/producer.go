package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Producer interface {
	SendMessage(topic string, message interface{}) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
}

// NewProducer connects to brokers (comma separated) and makes sure every
// topic exists. When the cluster cannot be reached it returns a producer that
// only logs.
func NewProducer(brokers string, topics ...string) Producer {
	addrs := strings.Split(brokers, ",")
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", addrs[0])
	if err != nil {
		logrus.WithError(err).Warn("kafka connection failed, using log-only producer")
		return &mockProducer{}
	}
	defer conn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	}
	if len(configs) > 0 {
		if err := conn.CreateTopics(configs...); err != nil {
			logrus.WithError(err).Debug("could not create topics (might already exist)")
		}
	}

	logrus.WithField("brokers", brokers).Info("connected to kafka")
	return &kafkaProducer{writer: writer}
}

// SendMessage writes message as JSON. Records are keyed by "event_id" when the
// message carries one so every record of an event lands on one partition.
func (p *kafkaProducer) SendMessage(topic string, message interface{}) error {
	value, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal kafka message: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(messageKey(message)),
		Value: value,
		Time:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}

	logrus.WithField("topic", topic).Debug("kafka message sent")
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

func messageKey(message interface{}) string {
	if m, ok := message.(map[string]interface{}); ok {
		if id, ok := m["event_id"].(string); ok {
			return id
		}
	}
	return "uabc-events"
}

// mockProducer для работы без Kafka
type mockProducer struct{}

func (m *mockProducer) SendMessage(topic string, message interface{}) error {
	logrus.WithFields(logrus.Fields{"topic": topic, "message": message}).Info("kafka disabled, message logged")
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}

// NewLogProducer returns the log-only producer used when the stream is disabled.
func NewLogProducer() Producer {
	return &mockProducer{}
}
