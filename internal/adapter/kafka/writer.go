package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-bom-service/internal/config"
	"github.com/couchcryptid/weather-bom-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reading is the wire form of one published value.
type Reading struct {
	Name        string    `json:"name"`
	Number      *float64  `json:"number,omitempty"`
	Text        *string   `json:"text,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Writer produces every published value to the sink topic, keyed by field
// name so compacted topics keep the latest value per field.
// It implements domain.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates an asynchronous producer for the configured sink topic.
// Publishing never blocks the ingestion worker; delivery failures are logged.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafkago.Message, err error) {
			if err != nil {
				logger.Error("publish to kafka failed", "error", err, "messages", len(messages))
			}
		},
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) PublishNumber(name string, value float64) {
	w.publish(Reading{Name: name, Number: &value})
}

func (w *Writer) PublishText(name string, value string) {
	w.publish(Reading{Name: name, Text: &value})
}

func (w *Writer) publish(r Reading) {
	r.PublishedAt = domain.Clock().Now().UTC()
	msg, err := serializeToMessage(r)
	if err != nil {
		w.logger.Error("serialize reading", "name", r.Name, "error", err)
		return
	}
	if err := w.writer.WriteMessages(context.Background(), msg); err != nil {
		w.logger.Error("enqueue reading", "name", r.Name, "error", err)
	}
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Reading into a Kafka message.
func serializeToMessage(r Reading) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.Name),
		Value: data,
		Time:  r.PublishedAt,
		Headers: []kafkago.Header{
			{Key: "field", Value: []byte(r.Name)},
			{Key: "published_at", Value: []byte(r.PublishedAt.Format(time.RFC3339))},
		},
	}, nil
}
