//go:build pilotlog

// pilot/log_debug.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package pilot

import (
	"fmt"
	"strings"
)

// Per-tick pilot logging configuration
var (
	pilotlogEnabled    bool
	pilotlogCategories map[string]bool
	pilotlogID         string // filter to only log this pilot (empty = log all)
)

// InitPilotLog initializes the per-tick pilot logging
func InitPilotLog(enabled bool, categories string, id string) {
	pilotlogEnabled = enabled
	pilotlogCategories = make(map[string]bool)
	pilotlogID = strings.TrimSpace(id)

	if !enabled {
		return
	}

	if categories == "" || categories == "all" {
		for _, cat := range []string{PilotLogMode, PilotLogTerrain, PilotLogCollision, PilotLogPath,
			PilotLogTactical, PilotLogControl} {
			pilotlogCategories[cat] = true
		}
	} else {
		for cat := range strings.SplitSeq(categories, ",") {
			pilotlogCategories[strings.TrimSpace(cat)] = true
		}
	}
}

// PilotLog logs a message with tick, pilot ID, and category
func PilotLog(id string, tick int64, category string, format string, args ...any) {
	if !pilotlogEnabled || !pilotlogCategories[category] {
		return
	}
	if pilotlogID != "" && pilotlogID != id {
		return
	}

	// Format: [tick] [id] [category] message
	fmt.Printf("[%6d] [%s] [%s] %s\n", tick, id, category, fmt.Sprintf(format, args...))
}
