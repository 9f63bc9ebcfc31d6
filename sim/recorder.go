// sim/recorder.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"errors"
	"fmt"

	"github.com/mmp/vtolai/util"
	"github.com/mmp/vtolai/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

var ErrEmptyRecording = errors.New("recording has no frames")

// Frame is the state of every entity at one tick.
type Frame struct {
	Tick     int64
	Entities []FrameEntity
}

type FrameEntity struct {
	ID        string
	Position  r3.Vec
	Velocity  r3.Vec
	Forward   r3.Vec
	Destroyed bool
	// The remaining fields are only set for piloted vehicles.
	Mode      string
	Status    string
	Actuators vehicle.Actuators
}

// Recorder samples the sim every Interval ticks.
type Recorder struct {
	Interval int64
	Frames   []Frame
}

func NewRecorder(interval int64) *Recorder {
	return &Recorder{Interval: max(1, interval)}
}

func (r *Recorder) Record(s *Sim) {
	if s.Tick%r.Interval != 0 {
		return
	}

	f := Frame{Tick: s.Tick, Entities: make([]FrameEntity, 0, len(s.Entities))}
	for _, e := range s.Entities {
		fe := FrameEntity{
			ID:        e.ID(),
			Position:  e.Contact.Position,
			Velocity:  e.Contact.Velocity,
			Forward:   e.Contact.Forward,
			Destroyed: e.Contact.Destroyed,
		}
		if e.Piloted() {
			d := e.Pilot.Decision()
			fe.Mode = d.Mode.String()
			fe.Status = d.Status
			fe.Actuators = e.Actuators
		}
		f.Entities = append(f.Entities, fe)
	}
	r.Frames = append(r.Frames, f)
}

// Track returns the recorded frames for one entity.
func (r *Recorder) Track(id string) []FrameEntity {
	var t []FrameEntity
	for _, f := range r.Frames {
		t = append(t, util.FilterSlice(f.Entities, func(fe FrameEntity) bool { return fe.ID == id })...)
	}
	return t
}

// Save writes the recording to path, msgpack-encoded and compressed.
func (r *Recorder) Save(path string) error {
	if len(r.Frames) == 0 {
		return ErrEmptyRecording
	}
	if err := util.StoreObject(path, r); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func LoadRecording(path string) (*Recorder, error) {
	var r Recorder
	if err := util.RetrieveObject(path, &r); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(r.Frames) == 0 {
		return nil, ErrEmptyRecording
	}
	return &r, nil
}
