// sim/errors.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import "errors"

var (
	ErrAircraftLanded      = errors.New("Aircraft has landed")
	ErrAircraftFrozen      = errors.New("Aircraft is not accepting instructions")
	ErrDuplicateCallsign   = errors.New("Duplicate callsign")
	ErrInvalidInstruction  = errors.New("Invalid instruction")
	ErrNoScenarioAircraft  = errors.New("Scenario has no aircraft")
	ErrUnknownAircraft     = errors.New("Unknown aircraft")
	ErrUnknownAircraftType = errors.New("Unknown aircraft type")
)
