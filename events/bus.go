package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TopicOrderPlaced = "orders.placed"
	// TopicOrderPlacedPoison receives order events a handler still failed
	// after its retries.
	TopicOrderPlacedPoison = "orders.placed.poison"
)

// maxHandlerRetries is how often a failing handler is retried before its
// event goes to the poison topic.
const maxHandlerRetries = 3

// OrderPlaced is published once an order has been committed.
type OrderPlaced struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	CustomerEmail string          `json:"customer_email"`
	CustomerName  string          `json:"customer_name"`
	IsGuest       bool            `json:"is_guest"`
	ItemCount     int             `json:"item_count"`
	Total         decimal.Decimal `json:"total"`
	PlacedAt      time.Time       `json:"placed_at"`
}

// Publisher is what the order flow needs from the bus.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, evt OrderPlaced) error
}

// Bus publishes domain events and dispatches them to in-process handlers
// through a watermill router.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	logger     *zap.Logger
	// shared is set when publisher and subscriber are the same pub/sub.
	shared bool
}

// NewGoChannelBus keeps events inside the process. Messages published while
// the router is not running are dropped.
func NewGoChannelBus(logger *zap.Logger) (*Bus, error) {
	wlogger := NewZapLoggerAdapter(logger)
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wlogger)
	bus, err := newBus(pubSub, pubSub, logger)
	if err != nil {
		return nil, err
	}
	bus.shared = true
	return bus, nil
}

// NewKafkaBus publishes to and consumes from Kafka.
func NewKafkaBus(brokers []string, consumerGroup string, logger *zap.Logger) (*Bus, error) {
	wlogger := NewZapLoggerAdapter(logger)

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: kafka.DefaultSaramaSyncPublisherConfig(),
	}, wlogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: saramaConfig,
		ConsumerGroup:         consumerGroup,
	}, wlogger)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}

	return newBus(publisher, subscriber, logger)
}

func newBus(pub message.Publisher, sub message.Subscriber, logger *zap.Logger) (*Bus, error) {
	wlogger := NewZapLoggerAdapter(logger)
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, wlogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event router: %w", err)
	}
	poison, err := middleware.PoisonQueue(pub, TopicOrderPlacedPoison)
	if err != nil {
		return nil, fmt.Errorf("failed to create poison queue: %w", err)
	}
	// The poison queue wraps Retry, so an event is acked once retries run out.
	router.AddMiddleware(
		middleware.Recoverer,
		poison,
		middleware.Retry{
			MaxRetries:      maxHandlerRetries,
			InitialInterval: 200 * time.Millisecond,
			Logger:          wlogger,
		}.Middleware,
	)
	bus := &Bus{publisher: pub, subscriber: sub, router: router, logger: logger}
	router.AddNoPublisherHandler("order_placed_poison_log", TopicOrderPlacedPoison, sub, bus.logPoisoned)
	return bus, nil
}

func (b *Bus) logPoisoned(msg *message.Message) error {
	b.logger.Error("order event poisoned",
		zap.String("order_number", msg.Metadata.Get("order_number")),
		zap.String("handler", msg.Metadata.Get(middleware.PoisonedHandlerKey)),
		zap.String("reason", msg.Metadata.Get(middleware.ReasonForPoisonedKey)),
	)
	return nil
}

func (b *Bus) PublishOrderPlaced(ctx context.Context, evt OrderPlaced) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", TopicOrderPlaced, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("order_number", evt.OrderNumber)
	msg.SetContext(ctx)

	if err := b.publisher.Publish(TopicOrderPlaced, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", TopicOrderPlaced, err)
	}
	return nil
}

// OnOrderPlaced registers a handler for placed orders. It must be called
// before Run.
func (b *Bus) OnOrderPlaced(name string, fn func(ctx context.Context, evt OrderPlaced) error) {
	b.router.AddNoPublisherHandler(name, TopicOrderPlaced, b.subscriber, func(msg *message.Message) error {
		var evt OrderPlaced
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			// A payload that does not decode will never succeed on retry.
			b.logger.Error("dropping malformed event", zap.String("topic", TopicOrderPlaced), zap.Error(err))
			return nil
		}
		return fn(msg.Context(), evt)
	})
}

// Run blocks until ctx is cancelled or the router fails.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once handlers are subscribed.
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	if err := b.publisher.Close(); err != nil {
		return err
	}
	if b.shared {
		return nil
	}
	return b.subscriber.Close()
}
