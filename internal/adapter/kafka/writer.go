package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/forecast-submission-gateway/internal/config"
	"github.com/couchcryptid/forecast-submission-gateway/internal/submission"
)

// EventType is set on every notification.
const EventType = "submission.accepted"

// Writer publishes submission notifications to a Kafka topic.
// It implements submission.Notifier.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured notification topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Notify publishes one receipt, keyed by file name so resubmissions of the
// same forecast land on the same partition.
func (w *Writer) Notify(ctx context.Context, r submission.Receipt) error {
	msg, err := serializeToMessage(r)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", r.Filename, err)
	}
	w.logger.Debug("submission notification published", "filename", r.Filename, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

type event struct {
	Type string `json:"event_type"`
	submission.Receipt
}

// serializeToMessage marshals a receipt into a Kafka message.
func serializeToMessage(r submission.Receipt) (kafkago.Message, error) {
	data, err := json.Marshal(event{Type: EventType, Receipt: r})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize receipt: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.Filename),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventType)},
			{Key: "variable", Value: []byte(r.Variable)},
			{Key: "fc_start_date", Value: []byte(r.StartDate)},
			{Key: "accepted_at", Value: []byte(r.AcceptedAt.Format(time.RFC3339))},
		},
	}, nil
}
