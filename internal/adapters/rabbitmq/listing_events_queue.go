package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"rent-monitor-service/internal/constants"
	"rent-monitor-service/internal/contracts"
	"rent-monitor-service/internal/core/domain"
	"rent-monitor-service/pkg/rabbitmq/rabbitmq_producer"
)

// DTO точно соответствует JSON-схеме listing-event/v1.json
type ListingEventDTO struct {
	EventType  string           `json:"event_type"`
	Listing    ListingRecordDTO `json:"listing"`
	OldPrice   int              `json:"old_price"`
	NewPrice   int              `json:"new_price"`
	ObservedAt time.Time        `json:"observed_at"`
}

type ListingRecordDTO struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    int     `json:"price"`
	Rooms    float64 `json:"rooms"`
	AreaSqm  int     `json:"area_sqm"`
	Region   string  `json:"region"`
	City     string  `json:"city"`
	SubArea  string  `json:"sub_area"`
	AdLink   string  `json:"ad_link"`
	ImageURL string  `json:"image_url"`
}

// RabbitMQListingEventsAdapter публикует события каталога в обменник
// для сторонних потребителей.
type RabbitMQListingEventsAdapter struct {
	producer *rabbitmq_producer.Publisher
}

// NewRabbitMQListingEventsAdapter создает новый экземпляр
func NewRabbitMQListingEventsAdapter(producer *rabbitmq_producer.Publisher) (*RabbitMQListingEventsAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer cannot be nil")
	}
	return &RabbitMQListingEventsAdapter{producer: producer}, nil
}

// PublishListingEvent отправляет одно событие с ключом маршрутизации по его типу.
// Тело проверяется по схеме перед публикацией: битое событие не должно
// дойти до потребителей.
func (a *RabbitMQListingEventsAdapter) PublishListingEvent(ctx context.Context, event domain.ListingEvent) error {
	eventDTO := ListingEventDTO{
		EventType: string(event.Type),
		Listing: ListingRecordDTO{
			ID:       event.Record.ID,
			Title:    event.Record.Title,
			Price:    event.Record.Price,
			Rooms:    event.Record.Rooms,
			AreaSqm:  event.Record.AreaSqm,
			Region:   event.Record.Region,
			City:     event.Record.City,
			SubArea:  event.Record.SubArea,
			AdLink:   event.Record.AdLink,
			ImageURL: event.Record.ImageURL,
		},
		OldPrice:   event.OldPrice,
		NewPrice:   event.NewPrice,
		ObservedAt: event.ObservedAt.UTC(),
	}

	eventJSON, err := json.Marshal(eventDTO)
	if err != nil {
		return fmt.Errorf("failed to marshal listing event for %s: %w", event.Record.ID, err)
	}

	if err := contracts.ValidateEvent("ListingEvent", "1.0.0", eventJSON); err != nil {
		return fmt.Errorf("listing event for %s failed schema validation: %w", event.Record.ID, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         eventJSON,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			"event-type":    "ListingEvent",
			"event-version": "1.0.0",
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return a.producer.Publish(publishCtx, routingKeyFor(event.Type), msg)
}

func routingKeyFor(eventType domain.EventType) string {
	switch eventType {
	case domain.EventTypeNew:
		return constants.RoutingKeyListingNew
	case domain.EventTypePriceChange:
		return constants.RoutingKeyListingPriceChange
	case domain.EventTypeRemoved:
		return constants.RoutingKeyListingRemoved
	default:
		return constants.RoutingKeyListingNew
	}
}
