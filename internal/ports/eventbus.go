package ports

import (
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// EventBus carries library, playlist, queue, device and scan notifications
// between components that do not know about each other.
//
// Example:
//
//	id := bus.Subscribe(domain.EventNowPlaying, func(event domain.Event) {
//	    e := event.(domain.NowPlayingEvent)
//	    window.SetPlaying(e.TrackID)
//	})
//	defer bus.Unsubscribe(id)
//
// Implementations must be safe for concurrent use.
type EventBus interface {
	// Publish delivers event to the matching handlers. Handlers run in
	// subscription order and may publish further events.
	Publish(event domain.Event)

	// Subscribe registers handler for one event type. Registering the same
	// handler twice yields two subscriptions.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// SubscribeAll registers handler for every event.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a subscription. Unknown ids are ignored.
	Unsubscribe(id domain.SubscriptionID)

	// HasSubscribers reports whether anyone listens to eventType.
	HasSubscribers(eventType domain.EventType) bool

	// Close drops all subscriptions. Later publishes are ignored.
	Close() error
}

// EventFilter decides whether a filtered subscription sees an event.
type EventFilter func(event domain.Event) bool

// FilteringEventBus adds narrower subscriptions on top of EventBus.
type FilteringEventBus interface {
	EventBus

	// SubscribeFiltered registers handler for events of eventType accepted by filter.
	SubscribeFiltered(eventType domain.EventType, filter EventFilter, handler domain.EventHandler) domain.SubscriptionID

	// SubscribeTopic registers handler for every event type under topic,
	// so "scan" matches scan.started, scan.progress and the rest.
	SubscribeTopic(topic string, handler domain.EventHandler) domain.SubscriptionID
}
