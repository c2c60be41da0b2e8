// sim/aircraft.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"
	"time"

	"tracon/log"
	"tracon/math"
	"tracon/nav"
)

// Aircraft is the unit of simulation: identity, performance, and the
// navigation state that drives it around.
type Aircraft struct {
	Callsign string
	Type     string

	Nav *nav.Nav

	Landed bool

	// Frozen aircraft hold their last valid state and are skipped by the
	// per-tick update; this is the fail-safe for reference-data problems
	// and for panics during an aircraft's update.
	Frozen       bool
	FrozenReason string

	// Set by the scheduler from the conflict detector's output after
	// each scan.
	ConflictAlert bool

	landedReported bool
	frozenReported bool

	// Events recorded during Step, drained by the scheduler after the
	// aircraft stage so it can stamp them with the tick number.
	events []Event
}

func (ac *Aircraft) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("callsign", ac.Callsign),
		slog.String("type", ac.Type),
		slog.Any("state", ac.Nav.FlightState))
}

// Active reports whether the aircraft still takes part in the
// simulation update and the conflict scan.
func (ac *Aircraft) Active() bool {
	return !ac.Landed && !ac.Frozen
}

// Step advances the aircraft one tick. A panic during the update freezes
// the aircraft rather than taking down the whole tick.
func (ac *Aircraft) Step(wind nav.Wind, simTime time.Time, lg *log.Logger) {
	if !ac.Active() {
		return
	}

	defer func() {
		if err := recover(); err != nil {
			ac.Frozen = true
			ac.FrozenReason = "panic during update"
			lg.Errorf("%s: panic during aircraft update: %v", ac.Callsign, err)
		}
	}()

	wasHolding := ac.Nav.Heading.Hold != nil
	wasEstablished := ac.Nav.Approach.InterceptState == nav.OnApproachCourse

	if passed := ac.Nav.Update(wind, simTime, lg); passed != nil {
		lg.Debug("passed waypoint", slog.String("callsign", ac.Callsign),
			slog.String("fix", passed.Fix))
		ac.events = append(ac.events, Event{Type: WaypointPassedEvent, Text: passed.Fix})
	}

	if hold := ac.Nav.Heading.Hold; hold != nil && !wasHolding {
		ac.events = append(ac.events, Event{Type: HoldEnteredEvent, Text: hold.Hold.DisplayName()})
	} else if hold == nil && wasHolding {
		ac.events = append(ac.events, Event{Type: HoldExitedEvent})
	}
	if !wasEstablished && ac.Nav.Approach.InterceptState == nav.OnApproachCourse {
		ac.events = append(ac.events, Event{Type: ApproachCapturedEvent, Text: ac.Nav.Approach.AssignedId})
	}

	ac.checkLanded()
}

// checkLanded flags the aircraft down once it reaches the runway
// threshold on a landing clearance.
func (ac *Aircraft) checkLanded() {
	ap := ac.Nav.Approach.Assigned
	if ap == nil || !ac.Nav.Approach.ClearedToLand {
		return
	}
	dist := math.Distance2f(ac.Nav.FlightState.Position, ap.Threshold)
	if dist < 0.5 && ac.Nav.FlightState.Altitude < ap.ThresholdElevation+150 {
		ac.Landed = true
	}
}

// freeze marks the aircraft as no longer updating, keeping its last
// valid state.
func (ac *Aircraft) freeze(reason string) {
	ac.Frozen = true
	ac.FrozenReason = reason
}
