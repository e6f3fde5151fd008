// Package events publishes alert lifecycle events to Kafka for downstream
// consumers (dashboards, notification dispatchers). Delivery of notifications
// themselves is out of scope; this is the feed those systems read.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"credentialwatch/internal/alert/models"
)

// Event types carried on the alert topic.
const (
	TypeAlertCreated  = "alert.created"
	TypeAlertResolved = "alert.resolved"
)

// AlertEvent is the wire payload for one alert lifecycle transition.
type AlertEvent struct {
	Type         string    `json:"type"`
	AlertID      string    `json:"alert_id"`
	ProviderID   string    `json:"provider_id"`
	CredentialID string    `json:"credential_id,omitempty"`
	Severity     string    `json:"severity"`
	WindowDays   int       `json:"window_days"`
	Channel      string    `json:"channel"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Kafka publishes alert events with franz-go. Produces are asynchronous;
// a failed produce is logged and dropped rather than failing the request,
// since the store remains the source of truth for alerts.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects to the brokers and ensures the topic exists. Returns an
// error if the cluster is unreachable at startup; better to fail fast than
// to silently drop every event.
func NewKafka(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", topic, err)
	}
	// TopicAlreadyExists is the normal case after first boot.
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", topic, resp.Err)
	}

	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

// PublishAlertCreated emits an alert.created event.
func (k *Kafka) PublishAlertCreated(ctx context.Context, alert *models.Alert) error {
	return k.publish(ctx, eventFor(TypeAlertCreated, alert, alert.CreatedAt))
}

// PublishAlertResolved emits an alert.resolved event.
func (k *Kafka) PublishAlertResolved(ctx context.Context, alert *models.Alert) error {
	occurredAt := alert.CreatedAt
	if alert.ResolvedAt != nil {
		occurredAt = *alert.ResolvedAt
	}
	return k.publish(ctx, eventFor(TypeAlertResolved, alert, occurredAt))
}

func (k *Kafka) publish(ctx context.Context, event AlertEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.ProviderID),
		Value: payload,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.Error("alert event produce failed",
				"type", event.Type,
				"alert_id", event.AlertID,
				"error", err.Error(),
			)
		}
	})
	return nil
}

// Close flushes pending produces and releases the client.
func (k *Kafka) Close(ctx context.Context) error {
	if err := k.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	k.client.Close()
	return nil
}

func eventFor(eventType string, alert *models.Alert, occurredAt time.Time) AlertEvent {
	event := AlertEvent{
		Type:       eventType,
		AlertID:    alert.ID.String(),
		ProviderID: alert.ProviderID.String(),
		Severity:   string(alert.Severity),
		WindowDays: alert.WindowDays,
		Channel:    alert.Channel,
		OccurredAt: occurredAt,
	}
	if alert.CredentialID != nil {
		event.CredentialID = alert.CredentialID.String()
	}
	return event
}
