package events

import (
	"context"

	"github.com/go-playground/validator/v10"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/kafka"
)

// BatchResolver resolves a batch of van routes. *application.RouteService satisfies it.
type BatchResolver interface {
	ResolveBatch(ctx context.Context, source string, reqs []route.VanRouteRequest) application.BatchResult
}

// OptimizationEventConsumer listens to optimization events and resolves street
// routes for every completed plan.
type OptimizationEventConsumer struct {
	consumer *kafka.Consumer
	resolver BatchResolver
	validate *validator.Validate
	logger   *zap.Logger
}

// NewOptimizationEventConsumer creates a new OptimizationEventConsumer.
func NewOptimizationEventConsumer(
	brokers []string,
	groupID string,
	resolver BatchResolver,
	logger *zap.Logger,
) *OptimizationEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, route.TopicOptimizationEvents, logger)
	return newOptimizationEventConsumer(consumer, resolver, logger)
}

func newOptimizationEventConsumer(consumer *kafka.Consumer, resolver BatchResolver, logger *zap.Logger) *OptimizationEventConsumer {
	return &OptimizationEventConsumer{
		consumer: consumer,
		resolver: resolver,
		validate: validator.New(),
		logger:   logger,
	}
}

// Start begins consuming optimization events. This blocks until the context is cancelled.
func (c *OptimizationEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *OptimizationEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *OptimizationEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from optimization topic",
			zap.Error(err),
			zap.Int("bytes", len(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case route.OptimizationPlanCompleted:
		return c.handlePlanCompleted(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled optimization event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *OptimizationEventConsumer) handlePlanCompleted(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt route.OptimizationPlanCompletedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse OptimizationPlanCompletedEvent data",
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}
	if err := c.validate.Struct(evt); err != nil {
		c.logger.Error("rejecting invalid optimization plan",
			zap.String("event_id", cloudEvent.ID),
			zap.String("plan_id", evt.PlanID),
			zap.Error(err),
		)
		return nil
	}

	c.logger.Info("resolving routes for optimization plan",
		zap.String("plan_id", evt.PlanID),
		zap.Int("vans", len(evt.Vans)),
	)

	// A plan that has been picked up is resolved in full even when shutdown
	// begins; the batch timeout still bounds it.
	batch := c.resolver.ResolveBatch(context.WithoutCancel(ctx), "kafka:"+evt.PlanID, evt.Vans)

	c.logger.Info("optimization plan routed",
		zap.String("plan_id", evt.PlanID),
		zap.String("batch_id", batch.BatchID.String()),
		zap.Int("ok", batch.OK),
		zap.Int("fallback", batch.Fallback),
		zap.Int("error", batch.Error),
	)
	return nil
}
