// pilot/log.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package pilot

// Available logging categories
const (
	PilotLogMode      = "mode"
	PilotLogTerrain   = "terrain"
	PilotLogCollision = "collision"
	PilotLogPath      = "path"
	PilotLogTactical  = "tactical"
	PilotLogControl   = "control"
)
