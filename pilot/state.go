// pilot/state.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package pilot

import (
	"fmt"
	"io"

	"github.com/mmp/vtolai/config"
	"github.com/mmp/vtolai/util"

	"github.com/brunoga/deep"
)

// Snapshot captures everything about a pilot that changes as it flies
// or is reconfigured, for rollback or persistence. Collaborators and
// the random number generator are not included.
type Snapshot struct {
	ID       string
	Config   config.Autopilot
	Deferred config.Deferred
	Memory   Memory
}

// TakeSnapshot returns a deep copy of the pilot's state.
func (p *Pilot) TakeSnapshot() Snapshot {
	return deep.MustCopy(Snapshot{
		ID:       p.ID,
		Config:   p.Config,
		Deferred: p.Deferred,
		Memory:   p.Memory,
	})
}

// RestoreSnapshot restores the pilot's state from a snapshot. The
// snapshot is copied, so it may be restored more than once. Cached
// traversability answers are dropped.
func (p *Pilot) RestoreSnapshot(snap Snapshot) {
	snap = deep.MustCopy(snap)
	p.Config = snap.Config
	p.Deferred = snap.Deferred
	p.Memory = snap.Memory
	p.pathfinder.Purge()
	p.pathfinder.SetTick(p.Tick)
}

// WriteState writes the pilot's state to w.
func (p *Pilot) WriteState(w io.Writer) error {
	return util.EncodeObject(w, p.TakeSnapshot())
}

// ReadState restores state written by WriteState. The pilot's ID must
// match.
func (p *Pilot) ReadState(r io.Reader) error {
	var snap Snapshot
	if err := util.DecodeObject(r, &snap); err != nil {
		return err
	}
	return p.restoreChecked(snap)
}

// SaveState stores the pilot's state in the file at path.
func (p *Pilot) SaveState(path string) error {
	return util.StoreObject(path, p.TakeSnapshot())
}

func (p *Pilot) LoadState(path string) error {
	var snap Snapshot
	if err := util.RetrieveObject(path, &snap); err != nil {
		return err
	}
	return p.restoreChecked(snap)
}

func (p *Pilot) restoreChecked(snap Snapshot) error {
	if snap.ID != p.ID {
		return fmt.Errorf("state for %q: %w", snap.ID, ErrStateMismatch)
	}
	if err := snap.Config.Validate(); err != nil {
		return err
	}
	p.RestoreSnapshot(snap)
	return nil
}
