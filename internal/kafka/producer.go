package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/IBM/sarama"
)

// Типы событий жизненного цикла подписки
const (
	EventSubscriptionCreated   = "subscription.created"
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventSubscriptionRefunded  = "subscription.refunded"
)

// SubscriptionEvent событие для сервиса уведомлений
type SubscriptionEvent struct {
	Type           string    `json:"type"`
	UserID         string    `json:"user_id"`
	Email          string    `json:"email,omitempty"`
	SubscriptionID string    `json:"subscription_id"`
	Status         string    `json:"status,omitempty"`
	PaymentID      string    `json:"payment_id,omitempty"`
	RefundID       string    `json:"refund_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Producer определяет интерфейс для публикации событий подписки.
type Producer interface {
	PublishSubscriptionEvent(ctx context.Context, event SubscriptionEvent) error
	Close() error
}

type saramaProducer struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewProducer создает продюсер поверх sarama.SyncProducer
func NewProducer(cfg *Config, log *logger.Logger) (Producer, error) {
	syncProducer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewSubscriptionProducer(syncProducer, cfg.Topic, log), nil
}

// NewSubscriptionProducer оборачивает готовый SyncProducer
func NewSubscriptionProducer(producer sarama.SyncProducer, topic string, log *logger.Logger) Producer {
	return &saramaProducer{
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

// PublishSubscriptionEvent публикует событие; ключ сообщения - ID пользователя,
// чтобы события одного пользователя шли в одну партицию по порядку.
func (p *saramaProducer) PublishSubscriptionEvent(ctx context.Context, event SubscriptionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.UserID),
		Value: sarama.ByteEncoder(messageValue),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(event.Type),
			},
		},
		Timestamp: event.Timestamp,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish subscription event: %w", err)
	}

	p.log.Infow("Published subscription event",
		"topic", p.topic, "type", event.Type, "partition", partition, "offset", offset)
	return nil
}

// Close закрывает продюсер
func (p *saramaProducer) Close() error {
	return p.producer.Close()
}

// NoOpProducer используется, когда Kafka не настроена
type NoOpProducer struct {
	log *logger.Logger
}

// NewNoOpProducer создает продюсер-заглушку
func NewNoOpProducer(log *logger.Logger) *NoOpProducer {
	return &NoOpProducer{log: log}
}

func (p *NoOpProducer) PublishSubscriptionEvent(_ context.Context, event SubscriptionEvent) error {
	p.log.Debugw("Kafka disabled, event dropped", "type", event.Type, "userID", event.UserID)
	return nil
}

func (p *NoOpProducer) Close() error { return nil }
