// metrics/metrics.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package metrics keeps process-wide counters of pilot activity. Each
// counter is kept both as an atomic (for Snapshot) and as an
// OpenTelemetry instrument on the global meter provider, which is a
// no-op unless the host program installs one.
package metrics

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/mmp/vtolai/metrics"

type Event int

const (
	Tick Event = iota
	TerrainAlert
	Dodge
	Bypass
	Pathfind
	PathfindFailed
	NumEvents
)

func (e Event) String() string {
	return [...]string{"tick", "terrain_alert", "dodge", "bypass", "pathfind", "pathfind_failed"}[e]
}

var (
	counts [NumEvents]atomic.Int64

	modesMu sync.Mutex
	modes   = make(map[string]*atomic.Int64)

	instOnce    sync.Once
	events      metric.Int64Counter
	modeCounter metric.Int64Counter
)

func instruments() {
	instOnce.Do(func() {
		m := otel.Meter(instrumentationName)

		var err error
		if events, err = m.Int64Counter("vtolai.pilot.events",
			metric.WithDescription("Pilot events by kind")); err != nil {
			events = noop.Int64Counter{}
		}
		if modeCounter, err = m.Int64Counter("vtolai.pilot.mode_ticks",
			metric.WithDescription("Ticks spent in each pilot mode")); err != nil {
			modeCounter = noop.Int64Counter{}
		}
	})
}

// Add records n occurrences of the event.
func Add(e Event, n int64) {
	counts[e].Add(n)

	instruments()
	events.Add(context.Background(), n, metric.WithAttributes(attribute.String("event", e.String())))
}

func Inc(e Event) {
	Add(e, 1)
}

// Mode records a tick spent in the named mode.
func Mode(name string) {
	modesMu.Lock()
	c, ok := modes[name]
	if !ok {
		c = &atomic.Int64{}
		modes[name] = c
	}
	modesMu.Unlock()
	c.Add(1)

	instruments()
	modeCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("mode", name)))
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Events map[string]int64
	Modes  map[string]int64
}

func Take() Snapshot {
	s := Snapshot{Events: make(map[string]int64), Modes: make(map[string]int64)}
	for e := range NumEvents {
		s.Events[e.String()] = counts[e].Load()
	}

	modesMu.Lock()
	defer modesMu.Unlock()
	for name, c := range modes {
		s.Modes[name] = c.Load()
	}
	return s
}

// Sub returns the change in each counter since prev.
func (s Snapshot) Sub(prev Snapshot) Snapshot {
	d := Snapshot{Events: make(map[string]int64), Modes: make(map[string]int64)}
	for k, v := range s.Events {
		d.Events[k] = v - prev.Events[k]
	}
	for k, v := range s.Modes {
		d.Modes[k] = v - prev.Modes[k]
	}
	return d
}

func (s Snapshot) LogValue() slog.Value {
	var attrs []slog.Attr
	for _, k := range slices.Sorted(maps.Keys(s.Events)) {
		attrs = append(attrs, slog.Int64(k, s.Events[k]))
	}
	var ma []any
	for _, k := range slices.Sorted(maps.Keys(s.Modes)) {
		ma = append(ma, slog.Int64(k, s.Modes[k]))
	}
	attrs = append(attrs, slog.Group("modes", ma...))
	return slog.GroupValue(attrs...)
}
