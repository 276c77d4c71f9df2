package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"orderdoc-server/internal/interfaces"
	"orderdoc-server/internal/models"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// ExchangeDocumentationEvents - fanout exchange для событий о готовой документации.
	ExchangeDocumentationEvents = "documentation_events"
	// EventTypeDocumentationGenerated - значение заголовка Type у сообщений.
	EventTypeDocumentationGenerated = "documentation.generated"
)

// Compile-time check
var _ interfaces.DocumentationEventPublisher = (*RabbitMQDocumentationPublisher)(nil)

// RabbitMQDocumentationPublisher публикует события о сгенерированной документации.
type RabbitMQDocumentationPublisher struct {
	mu     sync.Mutex
	ch     *amqp091.Channel
	logger *zap.Logger
}

// NewRabbitMQDocumentationPublisher открывает канал и объявляет durable fanout exchange.
func NewRabbitMQDocumentationPublisher(conn *amqp091.Connection, logger *zap.Logger) (*RabbitMQDocumentationPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}
	log := logger.Named("DocumentationPublisher")

	ch, err := conn.Channel()
	if err != nil {
		log.Error("Failed to open a channel", zap.Error(err))
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeDocumentationEvents, // name
		"fanout",                    // type
		true,                        // durable
		false,                       // auto-deleted
		false,                       // internal
		false,                       // no-wait
		nil,                         // arguments
	)
	if err != nil {
		_ = ch.Close()
		log.Error("Failed to declare exchange", zap.String("exchange", ExchangeDocumentationEvents), zap.Error(err))
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", ExchangeDocumentationEvents, err)
	}

	log.Info("Documentation events exchange declared", zap.String("exchange", ExchangeDocumentationEvents))
	return &RabbitMQDocumentationPublisher{ch: ch, logger: log}, nil
}

// PublishDocumentationGenerated публикует событие в exchange.
func (p *RabbitMQDocumentationPublisher) PublishDocumentationGenerated(ctx context.Context, event models.DocumentationGeneratedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal documentation event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		ExchangeDocumentationEvents, // exchange
		"",                          // routing key (не используется для fanout)
		false,                       // mandatory
		false,                       // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Type:         EventTypeDocumentationGenerated,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish documentation event",
			zap.String("projectID", event.ProjectID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish documentation event: %w", err)
	}

	p.logger.Debug("Documentation event published",
		zap.String("projectID", event.ProjectID.String()),
		zap.Int("version", event.Version),
	)
	return nil
}

// Close закрывает канал RabbitMQ.
func (p *RabbitMQDocumentationPublisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}

// NoopPublisher используется, когда брокер не настроен.
type NoopPublisher struct {
	logger *zap.Logger
}

// NewNoopPublisher создает издателя, который только пишет событие в debug-лог.
func NewNoopPublisher(logger *zap.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger.Named("NoopPublisher")}
}

// PublishDocumentationGenerated ничего не отправляет.
func (p *NoopPublisher) PublishDocumentationGenerated(_ context.Context, event models.DocumentationGeneratedEvent) error {
	p.logger.Debug("Broker not configured, dropping documentation event",
		zap.String("projectID", event.ProjectID.String()),
		zap.Int("version", event.Version),
	)
	return nil
}
