//go:build !pilotlog

// pilot/log_release.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package pilot

// InitPilotLog is a no-op in release builds
func InitPilotLog(enabled bool, categories string, id string) {}

// PilotLog is a no-op in release builds
func PilotLog(id string, tick int64, category string, format string, args ...any) {}
