// Package ingest streams driver locations to Kafka for the location consumer.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/voyya/internal/models"
)

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer  MessageWriter
	timeout time.Duration
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  false,
	}
	return NewProducer(w)
}

// NewProducer wraps any writer; tests pass an in-memory one.
func NewProducer(w MessageWriter) *KafkaProducer {
	return &KafkaProducer{writer: w, timeout: 2 * time.Second}
}

// PublishLocation writes one location keyed by driver id, so a driver's reports stay in
// one partition.
func (k *KafkaProducer) PublishLocation(ctx context.Context, loc models.DriverLocation) error {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	b, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(loc.DriverID, 10)),
		Value: b,
		Time:  loc.Timestamp,
	})
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

// DecodeLocation parses a message written by PublishLocation.
func DecodeLocation(value []byte) (models.DriverLocation, error) {
	var loc models.DriverLocation
	if err := json.Unmarshal(value, &loc); err != nil {
		return loc, fmt.Errorf("decode location: %w", err)
	}
	if loc.DriverID <= 0 {
		return loc, fmt.Errorf("decode location: missing driverId")
	}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return loc, fmt.Errorf("decode location: coordinates out of range")
	}
	return loc, nil
}
