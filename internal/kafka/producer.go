package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"

	"github.com/Panorama-Block/fairyring-monitor/internal/types"
)

const flushTimeoutMs = 5000

// producerAPI is the part of *kafka.Producer the alert producer uses.
type producerAPI interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// AlertProducer mirrors alerts to a Kafka topic.
type AlertProducer struct {
	producer producerAPI
	topic    string
	timeout  time.Duration
	logger   *logrus.Entry
}

// NewAlertProducer creates the mirror. timeout bounds the wait for each
// delivery report.
func NewAlertProducer(broker, topic string, timeout time.Duration, logger *logrus.Entry) (*AlertProducer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  broker,
		"acks":               "all",
		"message.timeout.ms": int(timeout.Milliseconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("kafka.NewProducer: %w", err)
	}
	logger.WithFields(logrus.Fields{"broker": broker, "topic": topic}).Info("kafka alert mirror enabled")
	return &AlertProducer{producer: p, topic: topic, timeout: timeout, logger: logger}, nil
}

func (p *AlertProducer) Name() string { return "kafka" }

// Notify publishes the alert and waits for the broker acknowledgement, at
// most for the producer timeout.
func (p *AlertProducer) Notify(ctx context.Context, alert types.Alert) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg, err := p.newMessage(alert)
	if err != nil {
		return err
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := p.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("producer.Produce: %w", err)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for delivery report: %w", ctx.Err())
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event: %v", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery: %w", m.TopicPartition.Error)
		}
		p.logger.WithFields(logrus.Fields{
			"partition": m.TopicPartition.Partition,
			"offset":    m.TopicPartition.Offset,
		}).Debug("alert mirrored to kafka")
		return nil
	}
}

func (p *AlertProducer) newMessage(alert types.Alert) (*kafka.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(alert.Source),
		Value:          data,
	}, nil
}

// Close flushes outstanding messages and releases the producer.
func (p *AlertProducer) Close() {
	if remaining := p.producer.Flush(flushTimeoutMs); remaining > 0 {
		p.logger.WithField("remaining", remaining).Warn("kafka flush timed out")
	}
	p.producer.Close()
}
