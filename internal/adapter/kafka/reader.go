package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/weather-bom-service/internal/config"
	"github.com/couchcryptid/weather-bom-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// CoordinateReader consumes single-axis position updates, as published by a
// GPS bridge, and forwards them to the control loop.
type CoordinateReader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewCoordinateReader creates a consumer for the coordinate topic.
func NewCoordinateReader(cfg *config.Config, logger *slog.Logger) *CoordinateReader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaCoordinateTopic,
		MinBytes: 1,
		MaxBytes: 1 << 16,
	})
	return &CoordinateReader{reader: r, logger: logger}
}

// Run forwards decoded updates to out until ctx is cancelled. Malformed
// messages are logged and skipped.
func (r *CoordinateReader) Run(ctx context.Context, out chan<- domain.AxisUpdate) error {
	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read coordinate: %w", err)
		}
		u, err := decodeAxisUpdate(msg)
		if err != nil {
			r.logger.Warn("skipping coordinate message", "error", err, "offset", msg.Offset)
			continue
		}
		select {
		case out <- u:
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *CoordinateReader) Close() error {
	return r.reader.Close()
}

// decodeAxisUpdate accepts {"axis":"latitude","value":-33.8}. When the body
// carries no axis, the message key names it.
func decodeAxisUpdate(msg kafkago.Message) (domain.AxisUpdate, error) {
	var body struct {
		Axis  string   `json:"axis"`
		Value *float32 `json:"value"`
	}
	if err := json.Unmarshal(msg.Value, &body); err != nil {
		return domain.AxisUpdate{}, fmt.Errorf("decode: %w", err)
	}
	if body.Axis == "" {
		body.Axis = string(msg.Key)
	}
	axis, err := domain.ParseAxis(body.Axis)
	if err != nil {
		return domain.AxisUpdate{}, err
	}
	if body.Value == nil {
		return domain.AxisUpdate{}, errors.New("missing value")
	}
	u := domain.AxisUpdate{Axis: axis, Value: *body.Value}
	probe := domain.Coordinate{}.Apply(u)
	if err := probe.Validate(); err != nil {
		return domain.AxisUpdate{}, err
	}
	return u, nil
}
