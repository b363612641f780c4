package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"shopdesk/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishSaleCreated publishes SaleCreated event
func (ep *EventPublisher) PublishSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error {
	key := fmt.Sprintf("sale-%s", event.SaleID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSaleStatusRefreshed publishes SaleStatusRefreshed event
func (ep *EventPublisher) PublishSaleStatusRefreshed(ctx context.Context, event *models.SaleStatusRefreshedEvent) error {
	key := fmt.Sprintf("sale-%s", event.SaleID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSaleCancelled publishes SaleCancelled event
func (ep *EventPublisher) PublishSaleCancelled(ctx context.Context, event *models.SaleCancelledEvent) error {
	key := fmt.Sprintf("sale-%s", event.SaleID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishInventoryRestored publishes InventoryRestored event
func (ep *EventPublisher) PublishInventoryRestored(ctx context.Context, event *models.InventoryRestoredEvent) error {
	key := fmt.Sprintf("sale-%s", event.SaleID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishImagesOptimized publishes ImagesOptimized event
func (ep *EventPublisher) PublishImagesOptimized(ctx context.Context, event *models.ImagesOptimizedEvent) error {
	return ep.producer.PublishEvent(ctx, "image-optimizer", event)
}

// EventHandler routes incoming events to registered callbacks
type EventHandler struct {
	onSaleCancelled func(context.Context, *models.SaleCancelledEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnSaleCancelled registers a handler for SaleCancelled events
func (eh *EventHandler) OnSaleCancelled(handler func(context.Context, *models.SaleCancelledEvent) error) {
	eh.onSaleCancelled = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeSaleCancelled:
		if eh.onSaleCancelled != nil {
			var event models.SaleCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SaleCancelled event: %w", err)
			}
			return eh.onSaleCancelled(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
