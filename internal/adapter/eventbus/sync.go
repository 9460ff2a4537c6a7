// Package eventbus provides implementations of the EventBus interface.
// This package contains the synchronous event bus implementation.
package eventbus

import (
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// ErrClosed is returned by Close on a bus that is already closed.
var ErrClosed = errors.New("event bus already closed")

// SyncEventBus is a synchronous implementation of the EventBus interface.
// Events are delivered on the publisher's goroutine, to every matching subscription in
// the order the subscriptions were made.
//
// Handlers may publish: the subscriber list is copied before delivery, so the queue
// engine can announce a new track from inside a track-ended handler. Handlers that
// subscribe or unsubscribe during delivery affect the next Publish only.
//
// Thread-safety: This implementation is thread-safe. Multiple goroutines can
// publish events and subscribe/unsubscribe handlers concurrently.
type SyncEventBus struct {
	logger *slog.Logger

	// subs holds every subscription in subscription order
	subs []subscription

	// mu protects subs, nextID and closed
	mu     sync.RWMutex
	nextID uint64
	closed bool
}

// subscription is one registered handler and what it listens to.
type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler

	// kind selects the events: an exact type, a topic prefix, or everything
	eventType domain.EventType
	topic     string
	all       bool

	// filter is nil for unfiltered subscriptions
	filter ports.EventFilter
}

func (s subscription) matches(event domain.Event) bool {
	t := event.Type()
	switch {
	case s.all:
	case s.topic != "":
		if !strings.HasPrefix(string(t), s.topic+".") {
			return false
		}
	case t != s.eventType:
		return false
	}
	return s.filter == nil || s.filter(event)
}

// NewSyncEventBus creates a new synchronous event bus.
// A nil logger disables tracing and panic reporting.
func NewSyncEventBus(logger *slog.Logger) *SyncEventBus {
	if logger != nil {
		logger = logger.With(slog.String("component", "eventbus"))
	}
	return &SyncEventBus{logger: logger}
}

// Publish delivers event to every matching subscription.
// Publishing on a closed bus or publishing nil does nothing.
//
// Panics in handlers are recovered and logged, but do not stop other handlers
// from being called.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	subs := slices.Clone(bus.subs)
	bus.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if !sub.matches(event) {
			continue
		}
		bus.callHandler(sub, event)
		delivered++
	}

	if bus.logger != nil {
		bus.logger.Debug("event published",
			slog.String("event_type", string(event.Type())),
			slog.Int("handlers", delivered))
	}
}

// callHandler calls an event handler and recovers from panics.
func (bus *SyncEventBus) callHandler(sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil && bus.logger != nil {
			bus.logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("subscription", string(sub.id)),
				slog.String("event_type", string(event.Type())))
		}
	}()
	sub.handler(event)
}

// add registers sub under a fresh id with the given prefix.
func (bus *SyncEventBus) add(prefix string, sub subscription) domain.SubscriptionID {
	if sub.handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	bus.nextID++
	sub.id = domain.SubscriptionID(prefix + strconv.FormatUint(bus.nextID, 10))
	bus.subs = append(bus.subs, sub)
	return sub.id
}

// Subscribe registers a handler for events of the specified type.
// The same handler can be registered multiple times with different IDs.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.SubscribeFiltered(eventType, nil, handler)
}

// SubscribeFiltered registers a handler that only receives events accepted by filter.
// A nil filter accepts every event of the type.
func (bus *SyncEventBus) SubscribeFiltered(
	eventType domain.EventType,
	filter ports.EventFilter,
	handler domain.EventHandler,
) domain.SubscriptionID {
	return bus.add("sub-", subscription{eventType: eventType, filter: filter, handler: handler})
}

// SubscribeTopic registers a handler for every event whose type starts with topic and
// a dot, such as "scan" for scan.started, scan.progress and so on.
func (bus *SyncEventBus) SubscribeTopic(topic string, handler domain.EventHandler) domain.SubscriptionID {
	topic = strings.TrimSuffix(topic, ".")
	if topic == "" {
		return bus.SubscribeAll(handler)
	}
	return bus.add("sub-topic-", subscription{topic: topic, handler: handler})
}

// SubscribeAll registers a handler that receives all events regardless of type.
// This is useful for logging, debugging, or analytics.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	return bus.add("sub-all-", subscription{all: true, handler: handler})
}

// Unsubscribe removes a previously registered event handler, keeping the order
// of the others. Unknown ids are ignored.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.subs = slices.DeleteFunc(bus.subs, func(s subscription) bool { return s.id == id })
}

// HasSubscribers reports whether an event of the given type would reach any handler,
// ignoring filters.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	return slices.ContainsFunc(bus.subs, func(s subscription) bool {
		return s.all ||
			(s.topic != "" && strings.HasPrefix(string(eventType), s.topic+".")) ||
			(s.topic == "" && s.eventType == eventType)
	})
}

// Close shuts down the event bus and clears all subscriptions.
// Closing twice returns ErrClosed.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ErrClosed
	}
	bus.closed = true
	bus.subs = nil
	return nil
}

// SubscriberCount returns the number of active subscriptions.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subs)
}

// Verify that SyncEventBus implements the EventBus interfaces
var (
	_ ports.EventBus          = (*SyncEventBus)(nil)
	_ ports.FilteringEventBus = (*SyncEventBus)(nil)
)
