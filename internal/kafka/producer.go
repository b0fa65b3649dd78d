package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
)

// Producer publishes JSON payloads over one shared writer. The Hash
// balancer keeps messages with the same key on the same partition, which
// is what lets a trip's bookings stay ordered relative to each other.
type Producer struct {
	brokers []string
	writer  *kafka.Writer
	log     zerolog.Logger
}

func NewProducer(brokers []string, log zerolog.Logger) *Producer {
	return &Producer{
		brokers: brokers,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		log: log.With().Str("component", "kafka_producer").Logger(),
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("write to %s: %w", topic, err)
	}

	p.log.Debug().Str("topic", topic).Str("key", key).Int("bytes", len(value)).Msg("message published")
	return nil
}

// PublishWithRetry retries broker errors with exponential backoff.
// maxRetries counts total attempts, not extra ones.
func (p *Producer) PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	attempt := 0
	b := retry.WithMaxRetries(uint64(maxRetries-1), retry.NewExponential(250*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := p.Publish(ctx, topic, key, payload); err != nil {
			p.log.Warn().Err(err).Str("topic", topic).Int("attempt", attempt).Msg("publish attempt failed")
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Ping dials the first broker and lists partitions, a cheap reachability
// probe for startup diagnostics.
func (p *Producer) Ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ReadPartitions(); err != nil {
		return fmt.Errorf("read partitions: %w", err)
	}
	return nil
}
