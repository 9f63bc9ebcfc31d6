// config/deferred.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package config

import (
	"slices"
)

// DeferredSet is a pending assignment to an Autopilot field.
type DeferredSet struct {
	Field Field
	Value float64
	Ticks int // ticks remaining before it is applied
}

// Deferred is a queue of field assignments that are applied at tick
// boundaries, after a given number of ticks have elapsed.
type Deferred struct {
	Pending []DeferredSet
}

func (d *Deferred) Enqueue(f Field, v float64, ticks int) {
	d.Pending = append(d.Pending, DeferredSet{Field: f, Value: v, Ticks: ticks})
}

func (d *Deferred) Len() int {
	return len(d.Pending)
}

// Tick advances the queue by one tick and applies the assignments that
// have come due to c, in the order they were enqueued. It returns the
// assignments that were applied.
func (d *Deferred) Tick(c *Autopilot) ([]DeferredSet, error) {
	if len(d.Pending) == 0 {
		return nil, nil
	}

	var applied []DeferredSet
	var err error
	d.Pending = slices.DeleteFunc(d.Pending, func(ds DeferredSet) bool {
		ds.Ticks--
		if ds.Ticks > 0 {
			return false
		}
		if v, serr := c.Set(ds.Field, ds.Value); serr != nil {
			err = serr
		} else {
			ds.Value = v
			applied = append(applied, ds)
		}
		return true
	})
	for i := range d.Pending {
		d.Pending[i].Ticks--
	}
	return applied, err
}
