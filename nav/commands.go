// nav/commands.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"fmt"
	"time"

	av "tracon/aviation"
	"tracon/log"
	"tracon/math"
)

// This file has the methods that implement controller instructions. Each
// returns the pilot's readback for the instruction as well as an error if
// the instruction cannot be followed.

func (nav *Nav) AssignAltitude(alt float32, lg *log.Logger) (string, error) {
	if alt > nav.Perf.Ceiling {
		return "", ErrInvalidAltitude
	}

	var response string
	if alt > nav.FlightState.Altitude {
		response = fmt.Sprintf("climb and maintain %.0f", alt)
	} else if alt == nav.FlightState.Altitude {
		response = fmt.Sprintf("maintain %.0f", alt)
	} else {
		response = fmt.Sprintf("descend and maintain %.0f", alt)
	}

	nav.Altitude = NavAltitude{Assigned: &alt}
	return response, nil
}

func (nav *Nav) AssignSpeed(speed float32, lg *log.Logger) (string, error) {
	if speed == 0 {
		nav.Speed = NavSpeed{}
		return "cancel speed restrictions", nil
	}
	if speed < nav.Perf.Speed.Min || speed > nav.Perf.Speed.MaxTAS {
		return "", ErrInvalidSpeed
	}

	var response string
	if nav.Approach.Cleared {
		// Narrow request to keep the instruction valid on the approach.
		response = fmt.Sprintf("maintain %.0f knots until 5 mile final", speed)
	} else if speed < nav.FlightState.IAS {
		response = fmt.Sprintf("reduce speed to %.0f knots", speed)
	} else if speed > nav.FlightState.IAS {
		response = fmt.Sprintf("increase speed to %.0f knots", speed)
	} else {
		response = fmt.Sprintf("maintain %.0f knots", speed)
	}

	nav.Speed = NavSpeed{Assigned: &speed}
	return response, nil
}

func (nav *Nav) ExpediteDescent(lg *log.Logger) (string, error) {
	alt, _ := nav.TargetAltitude(lg)
	if alt >= nav.FlightState.Altitude {
		return "", ErrUnableCommand
	}
	if nav.Altitude.Expedite {
		return "we're already expediting", nil
	}
	nav.Altitude.Expedite = true
	return fmt.Sprintf("expedite descent to %.0f", alt), nil
}

func (nav *Nav) ExpediteClimb(lg *log.Logger) (string, error) {
	alt, _ := nav.TargetAltitude(lg)
	if alt <= nav.FlightState.Altitude {
		return "", ErrUnableCommand
	}
	if nav.Altitude.Expedite {
		return "we're already expediting", nil
	}
	nav.Altitude.Expedite = true
	return fmt.Sprintf("expedite climb to %.0f", alt), nil
}

func (nav *Nav) AssignHeading(hdg float32, turn TurnMethod, simTime time.Time) (string, error) {
	if hdg <= 0 || hdg > 360 {
		return "", ErrInvalidHeading
	}

	nav.EnqueueHeading(hdg, turn, simTime)

	// A heading assignment cancels an in-progress hold.
	if nav.Heading.Hold != nil {
		nav.Heading.Hold = nil
	}

	// If the aircraft was established on the approach course, a new
	// vector takes it off; it will re-intercept on the new heading.
	if nav.Approach.Cleared {
		nav.Approach.InterceptState = InitialHeading
	} else {
		nav.Approach.InterceptState = NotIntercepting
	}

	switch turn {
	case TurnClosest:
		return fmt.Sprintf("fly heading %03d", int(hdg)), nil
	case TurnRight:
		return fmt.Sprintf("turn right heading %03d", int(hdg)), nil
	default:
		return fmt.Sprintf("turn left heading %03d", int(hdg)), nil
	}
}

func (nav *Nav) FlyPresentHeading(simTime time.Time) (string, error) {
	nav.EnqueueHeading(nav.FlightState.Heading, TurnClosest, simTime)
	return "fly present heading", nil
}

// fixInRoute returns the index in the assigned waypoints of the given
// fix, or -1.
func (nav *Nav) fixInRoute(fix string) int {
	return waypointIndex(nav.AssignedWaypoints(), fix)
}

func (nav *Nav) DirectFix(fix string, simTime time.Time) (string, error) {
	// If the fix is in the route, then depart to it directly, keeping
	// everything downstream of it.
	if idx := nav.fixInRoute(fix); idx != -1 {
		wps := nav.AssignedWaypoints()[idx:]
		nav.EnqueueDirectFix(wps, simTime)
		nav.Approach.InterceptState = NotIntercepting
		return "direct " + fix, nil
	}

	// Otherwise look it up in the fix database; the route continues with
	// the aircraft's current route after the fix.
	loc, ok := nav.Fixes.Lookup(fix)
	if !ok {
		return "", ErrInvalidFix
	}
	if math.Distance2f(nav.FlightState.Position, loc) > 150 {
		return "", ErrFixIsTooFarAway
	}

	wps := append([]av.Waypoint{{Fix: fix, Location: loc}}, nav.AssignedWaypoints()...)
	nav.EnqueueDirectFix(wps, simTime)
	nav.Approach.InterceptState = NotIntercepting
	return "direct " + fix, nil
}

func (nav *Nav) DepartFixDirect(fixa, fixb string) (string, error) {
	ia := nav.fixInRoute(fixa)
	if ia == -1 {
		return "", ErrFixNotInRoute
	}
	ib := nav.fixInRoute(fixb)
	if ib == -1 {
		return "", ErrInvalidFix
	}
	if ib <= ia {
		return "", ErrInvalidFix
	}

	wps := nav.AssignedWaypoints()
	nfa := nav.FixAssignments[fixa]
	wp := wps[ib]
	nfa.Depart.Fix = &wp
	nav.FixAssignments[fixa] = nfa

	return fmt.Sprintf("depart %s direct %s", fixa, fixb), nil
}

func (nav *Nav) DepartFixHeading(fix string, hdg float32) (string, error) {
	if hdg <= 0 || hdg > 360 {
		return "", ErrInvalidHeading
	}
	if nav.fixInRoute(fix) == -1 {
		return "", ErrFixNotInRoute
	}

	nfa := nav.FixAssignments[fix]
	nfa.Depart.Heading = &hdg
	nav.FixAssignments[fix] = nfa

	return fmt.Sprintf("depart %s heading %03d", fix, int(hdg)), nil
}

func (nav *Nav) CrossFixAt(fix string, ar *av.AltitudeRestriction, speed float32) (string, error) {
	if nav.fixInRoute(fix) == -1 {
		return "", ErrFixNotInRoute
	}

	response := "cross " + fix
	nfa := nav.FixAssignments[fix]
	if ar != nil {
		nfa.Arrive.Altitude = ar
		response += " " + ar.Summary()
		// The cross-at-altitude restriction takes precedence over any
		// assigned altitude.
		nav.Altitude = NavAltitude{}
	}
	if speed != 0 {
		s := speed
		nfa.Arrive.Speed = &s
		response += fmt.Sprintf(" at %.0f knots", speed)
		nav.Speed = NavSpeed{}
	}
	nav.FixAssignments[fix] = nfa

	return response, nil
}

func (nav *Nav) HoldAtFix(hold av.Hold, simTime time.Time) (string, error) {
	if _, ok := nav.Fixes.Lookup(hold.Fix); !ok {
		return "", ErrInvalidFix
	}
	if hold.InboundCourse <= 0 || hold.InboundCourse > 360 {
		return "", ErrInvalidHeading
	}

	if nav.fixInRoute(hold.Fix) == -1 {
		// Not in the route; go direct to it first.
		if _, err := nav.DirectFix(hold.Fix, simTime); err != nil {
			return "", err
		}
	}

	nfa := nav.FixAssignments[hold.Fix]
	h := hold
	nfa.Hold = &h
	nav.FixAssignments[hold.Fix] = nfa

	return "hold at " + hold.DisplayName() + " as published", nil
}

func (nav *Nav) CancelHold(simTime time.Time) (string, error) {
	if fh := nav.Heading.Hold; fh != nil {
		// Exit the hold the next time we're inbound at the fix.
		fh.Cancel = true
		return "cancel hold, resuming own navigation at " + fh.Hold.Fix, nil
	}

	// A hold that hasn't started yet is simply dropped.
	for fix, nfa := range nav.FixAssignments {
		if nfa.Hold != nil {
			nfa.Hold = nil
			nav.FixAssignments[fix] = nfa
			return "cancel hold at " + fix, nil
		}
	}

	return "", ErrUnableCommand
}

func (nav *Nav) ExpectApproach(id string, ap *av.Approach, lg *log.Logger) (string, error) {
	if ap == nil {
		return "", ErrUnknownApproach
	}
	if ap.LocalizerCourse <= 0 || ap.LocalizerCourse > 360 {
		return "", ErrInvalidApproach
	}
	if nav.Approach.Assigned != nil && nav.Approach.AssignedId == id {
		return "we already got it, expecting the " + ap.Id + " approach", nil
	}

	nav.Approach.Assigned = ap
	nav.Approach.AssignedId = id

	return "we'll expect the " + ap.Id + " approach", nil
}

func (nav *Nav) ClearedApproach(id string, simTime time.Time, lg *log.Logger) (string, error) {
	if nav.Approach.AssignedId == "" {
		return "", ErrClearedForUnexpectedApproach
	}
	if nav.Approach.AssignedId != id {
		return "", ErrClearedForUnexpectedApproach
	}
	if nav.Approach.Cleared {
		return "cleared the " + nav.Approach.Assigned.Id + " approach", nil
	}

	ap := nav.Approach.Assigned

	if hdg, ok := nav.AssignedHeading(); ok {
		// On a vector; the aircraft joins the approach when it intercepts
		// the localizer, as long as the heading will take it there.
		if math.Abs(math.HeadingDifference(hdg, ap.LocalizerCourse)) > 90 {
			return "", ErrUnableCommand
		}
		nav.Approach.InterceptState = InitialHeading

		// A cleared approach shortens any pending deferred heading; the
		// flight crew is primed to act.
		if dh := nav.DeferredNavHeading; dh != nil && dh.Time.After(simTime.Add(2*time.Second)) {
			dh.Time = simTime.Add(2 * time.Second)
		}
	}

	nav.Approach.Cleared = true
	if nav.Approach.PassedApproachFix {
		// The aircraft is on a segment of the approach already.
		nav.Altitude = NavAltitude{}
	}
	nav.Speed = NavSpeed{}

	return "cleared the " + ap.Id + " approach", nil
}

func (nav *Nav) ClearedToLand(lg *log.Logger) (string, error) {
	if !nav.Approach.Cleared {
		return "", ErrNotClearedForApproach
	}
	if nav.Approach.InterceptState != OnApproachCourse {
		return "", ErrNotIntercepted
	}
	nav.Approach.ClearedToLand = true
	return "cleared to land runway " + nav.Approach.Assigned.Runway, nil
}

func (nav *Nav) CancelApproachClearance(lg *log.Logger) (string, error) {
	if !nav.Approach.Cleared {
		return "", ErrNotClearedForApproach
	}

	nav.Approach.Cleared = false
	nav.Approach.ClearedToLand = false
	nav.Approach.InterceptState = NotIntercepting

	return "cancel approach clearance", nil
}

// ResumeOwnNavigation takes an aircraft that is currently on a heading
// and puts it back on its route, rejoining at the closest upcoming route
// segment.
func (nav *Nav) ResumeOwnNavigation(simTime time.Time) (string, error) {
	if len(nav.Waypoints) == 0 {
		return "", ErrNotFlyingRoute
	}

	if nav.Heading.Hold != nil {
		// Break out of the hold immediately and head for the next leg
		// rather than finishing the circuit.
		nav.Heading = NavHeading{}
		nav.DeferredNavHeading = nil
		return "own navigation, direct " + nav.Waypoints[0].Fix, nil
	}

	if nav.Heading.Assigned == nil && nav.DeferredNavHeading == nil {
		return "", ErrNotOnHeading
	}

	// Find the route segment the aircraft is closest to and rejoin there.
	minDist := float32(1000000)
	resumeIdx := 0
	for i := 0; i+1 < len(nav.Waypoints); i++ {
		d := math.PointSegmentDistance(nav.FlightState.Position,
			nav.Waypoints[i].Location, nav.Waypoints[i+1].Location)
		if d < minDist {
			minDist = d
			// Rejoin at the segment's downstream fix unless the upstream
			// one is still ahead of us.
			hdgToFirst := math.Heading2f(nav.FlightState.Position, nav.Waypoints[i].Location)
			if math.Abs(math.HeadingDifference(hdgToFirst, nav.FlightState.Heading)) < 90 {
				resumeIdx = i
			} else {
				resumeIdx = i + 1
			}
		}
	}

	nav.EnqueueDirectFix(nav.Waypoints[resumeIdx:], simTime)
	return "own navigation, direct " + nav.Waypoints[resumeIdx].Fix, nil
}

// GoAround discontinues an approach: climb on the runway heading and wait
// for further instructions.
func (nav *Nav) GoAround(simTime time.Time, lg *log.Logger) (string, error) {
	if nav.Approach.Assigned == nil || !nav.Approach.Cleared {
		return "", ErrNotClearedForApproach
	}

	hdg := nav.Approach.Assigned.LocalizerCourse
	nav.Heading = NavHeading{Assigned: &hdg}
	nav.DeferredNavHeading = nil

	alt := float32(100 * int((nav.Approach.Assigned.ThresholdElevation+2500)/100))
	nav.Altitude = NavAltitude{Assigned: &alt}
	nav.Speed = NavSpeed{}

	nav.Approach = NavApproach{}
	nav.Waypoints = nil

	return fmt.Sprintf("going around, flying runway heading, climbing to %.0f", alt), nil
}
