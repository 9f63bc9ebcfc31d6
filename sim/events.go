// sim/events.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mmp/vtolai/log"
)

// EventStream is a basic pub/sub queue: the sim posts events as it
// steps and any number of subscribers collect them at their own pace.
type EventStream struct {
	mu            sync.Mutex
	events        []Event
	subscriptions map[*EventsSubscription]any
	lg            *log.Logger
}

type EventsSubscription struct {
	stream *EventStream
	// offset is the index in the stream's events up to which the
	// subscriber has consumed them.
	offset int
}

func NewEventStream(lg *log.Logger) *EventStream {
	return &EventStream{
		subscriptions: make(map[*EventsSubscription]any),
		lg:            lg,
	}
}

// Subscribe registers a new subscriber; it sees only events posted after
// this call.
func (e *EventStream) Subscribe() *EventsSubscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	sub := &EventsSubscription{stream: e, offset: len(e.events)}
	e.subscriptions[sub] = nil
	return sub
}

func (e *EventsSubscription) Unsubscribe() {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to unsubscribe invalid subscription: %+v", e)
	}
	delete(e.stream.subscriptions, e)
	e.stream.compact()
	e.stream = nil
}

// Post adds an event to the stream. It's dropped if there are no
// subscribers.
func (e *EventStream) Post(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lg.Debug("posted event", slog.Any("event", event))

	if len(e.subscriptions) > 0 {
		e.events = append(e.events, event)
	}
}

// Get returns the events posted since the subscriber's last call to Get.
func (e *EventsSubscription) Get() []Event {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to get with unregistered subscription: %+v", e)
		return nil
	}

	events := slices.Clone(e.stream.events[e.offset:])
	e.offset = len(e.stream.events)
	e.stream.compact()

	return events
}

// compact reclaims the storage for events that every subscriber has
// seen.
func (e *EventStream) compact() {
	minOffset := len(e.events)
	for sub := range e.subscriptions {
		minOffset = min(minOffset, sub.offset)
	}

	if minOffset > cap(e.events)/2 {
		n := copy(e.events, e.events[minOffset:])
		e.events = e.events[:n]
		for sub := range e.subscriptions {
			sub.offset -= minOffset
		}
	}
}

func (e *EventStream) LogValue() slog.Value {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := []slog.Attr{
		slog.Int("len", len(e.events)),
		slog.Int("cap", cap(e.events)),
		slog.Int("subscribers", len(e.subscriptions)),
	}
	if len(e.events) > 0 {
		items = append(items, slog.Any("last_element", e.events[len(e.events)-1]))
	}
	return slog.GroupValue(items...)
}

///////////////////////////////////////////////////////////////////////////

type EventType int

const (
	ModeChangedEvent EventType = iota
	AirborneEvent
	TerrainAlertEvent
	DodgeEvent
	NearMissEvent
	GroundContactEvent
	NumEventTypes
)

func (t EventType) String() string {
	return [...]string{"ModeChanged", "Airborne", "TerrainAlert", "Dodge", "NearMiss", "GroundContact"}[t]
}

type Event struct {
	Type     EventType
	Tick     int64
	EntityID string
	// OtherID is the other entity in a near miss.
	OtherID string
	Mode    string
	Status  string
	// Value is the separation for near misses and the descent rate for
	// ground contact.
	Value float64
}

func (e *Event) String() string {
	return fmt.Sprintf("%d %s: %s %s %q", e.Tick, e.Type, e.EntityID, e.Mode, e.Status)
}

func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("type", e.Type.String()),
		slog.Int64("tick", e.Tick),
		slog.String("entity", e.EntityID),
	}
	if e.OtherID != "" {
		attrs = append(attrs, slog.String("other", e.OtherID))
	}
	if e.Mode != "" {
		attrs = append(attrs, slog.String("mode", e.Mode))
	}
	if e.Status != "" {
		attrs = append(attrs, slog.String("status", e.Status))
	}
	if e.Value != 0 {
		attrs = append(attrs, slog.Float64("value", e.Value))
	}
	return slog.GroupValue(attrs...)
}
