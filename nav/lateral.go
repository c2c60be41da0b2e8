// nav/lateral.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"time"

	av "tracon/aviation"
	"tracon/log"
	"tracon/math"
)

// StandardTurnRate is the maximum turn rate in degrees per second; the
// actual rate may be lower at high speeds, where the bank angle needed for
// a standard rate turn would be excessive.
const StandardTurnRate = 3

type TurnMethod int

const (
	TurnClosest TurnMethod = iota // default
	TurnLeft
	TurnRight
)

func (t TurnMethod) String() string {
	return [...]string{"closest", "left", "right"}[t]
}

// TurnAngle returns the angle in degrees swept out by turning from the
// heading from to the heading to using the given turn method.
func TurnAngle(from, to float32, turn TurnMethod) float32 {
	switch turn {
	case TurnLeft:
		return math.NormalizeHeading(from - to)
	case TurnRight:
		return math.NormalizeHeading(to - from)
	default: // TurnClosest
		return math.Abs(math.HeadingDifference(from, to))
	}
}

// Update advances the aircraft's state one second. If a waypoint in the
// route was passed during the update, it is returned.
func (nav *Nav) Update(wind Wind, simTime time.Time, lg *log.Logger) *av.Waypoint {
	// See if any deferred heading assignments are ready to take effect.
	if dh := nav.DeferredNavHeading; dh != nil && !simTime.Before(dh.Time) {
		if len(dh.Waypoints) > 0 {
			// Direct fix
			nav.Heading = NavHeading{}
			nav.Waypoints = dh.Waypoints
		} else if dh.Heading != nil {
			nav.Heading = NavHeading{Assigned: dh.Heading, Turn: dh.Turn}
		} else if dh.Hold != nil {
			nav.Heading = NavHeading{Hold: dh.Hold}
		} else {
			// Resume own navigation
			nav.Heading = NavHeading{}
		}
		nav.DeferredNavHeading = nil
	}

	// An aircraft cleared for the approach while flying its route joins
	// the localizer when it crosses the extended centerline.
	if nav.Approach.Cleared && nav.Approach.InterceptState == NotIntercepting {
		if _, ok := nav.AssignedHeading(); !ok {
			ap := nav.Approach.Assigned
			if ap != nil && nav.OnExtendedCenterline(nav.Params.InterceptTolerance) &&
				math.Abs(math.HeadingDifference(nav.FlightState.Heading, ap.LocalizerCourse)) < nav.Params.InterceptMaxAngle {
				nav.Approach.InterceptState = OnApproachCourse
				nav.Heading = NavHeading{}
			}
		}
	}

	nav.updateAirspeed(wind, lg)
	nav.updateAltitude(lg)
	nav.updateHeading(wind, simTime, lg)
	nav.updatePositionAndGS(wind, lg)

	return nav.updateWaypoints(wind, simTime, lg)
}

// TargetHeading returns the current target heading, the turn direction to
// use to get there, and the turn rate in degrees per second.
func (nav *Nav) TargetHeading(wind Wind, simTime time.Time, lg *log.Logger) (heading float32, turn TurnMethod, rate float32) {
	// Common case: flying to the next waypoint on the route.
	heading, turn, rate = nav.FlightState.Heading, TurnClosest, 3

	if nav.Heading.Hold != nil {
		return nav.updateHold(wind, simTime, lg)
	}

	// nav.Heading.Assigned may still be nil pending a deferred
	// instruction; in that case we fly the current heading.
	if nav.Approach.InterceptState != NotIntercepting {
		return nav.approachHeading(wind, simTime, lg)
	}

	if nav.Heading.Assigned != nil {
		heading = *nav.Heading.Assigned
		if nav.Heading.Turn != nil {
			turn = *nav.Heading.Turn
		}
		return
	}

	if len(nav.Waypoints) == 0 {
		// No route left; fly present heading.
		return
	}

	// Fly the route.
	wp := nav.Waypoints[0]
	heading = math.Heading2f(nav.FlightState.Position, wp.Location)

	// Crab into the wind so the ground track runs along the course line.
	heading -= wind.Deflection(math.Scale2f(math.HeadingVector(heading), nav.TAS()))
	heading = math.NormalizeHeading(heading)

	return
}

// maxTurnRate returns the turn rate corresponding to the aircraft's
// maximum bank angle at its current true airspeed, clamped to the
// standard rate.
func (nav *Nav) maxTurnRate() float32 {
	if nav.FlightState.BankAngle == 0 {
		return StandardTurnRate
	}
	return turnRateForBank(math.Abs(nav.FlightState.BankAngle), nav.TAS())
}

func turnRateForBank(bankAngle, tas float32) float32 {
	if tas == 0 {
		return StandardTurnRate
	}
	tasMS := tas * 0.514444 // knots to m/s
	rate := math.Degrees(9.81 * math.Tan(math.Radians(bankAngle)) / tasMS)
	return min(rate, StandardTurnRate)
}

// bankForTurnRate inverts turnRateForBank.
func bankForTurnRate(rate, tas float32) float32 {
	tasMS := tas * 0.514444
	return math.Degrees(math.Atan2(math.Radians(rate)*tasMS, 9.81))
}

func (nav *Nav) updateHeading(wind Wind, simTime time.Time, lg *log.Logger) {
	targetHeading, turn, turnRate := nav.TargetHeading(wind, simTime, lg)

	if nav.FlightState.Heading == targetHeading && nav.FlightState.BankAngle == 0 {
		return
	}
	if math.Abs(math.HeadingDifference(nav.FlightState.Heading, targetHeading)) < 1 &&
		math.Abs(nav.FlightState.BankAngle) < 3 {
		nav.FlightState.Heading = targetHeading
		nav.FlightState.BankAngle = 0
		return
	}

	var turnDelta float32
	switch turn {
	case TurnLeft:
		angle := math.NormalizeHeading(nav.FlightState.Heading - targetHeading)
		turnDelta = -min(angle, turnRate)
	case TurnRight:
		angle := math.NormalizeHeading(targetHeading - nav.FlightState.Heading)
		turnDelta = min(angle, turnRate)
	default: // TurnClosest
		signed := math.HeadingSignedTurn(nav.FlightState.Heading, targetHeading)
		turnDelta = math.Clamp(signed, -turnRate, turnRate)
	}

	// Model the roll-in and roll-out of the bank rather than turning at
	// the full rate instantly.
	maxBank := nav.Perf.Turn.MaxBankAngle
	maxBankRate := nav.Perf.Turn.MaxBankRate
	tas := nav.TAS()

	targetBank := math.Clamp(bankForTurnRate(math.Abs(turnDelta), tas), 0, maxBank)
	if turnDelta < 0 {
		targetBank = -targetBank
	}

	// How many degrees would we turn through in rolling out of the
	// current bank angle?  If beginning the roll-out now just reaches the
	// target heading, start it.
	levelOut := float32(0)
	bank := nav.FlightState.BankAngle
	for math.Abs(bank) > 0.1 {
		levelOut += turnRateForBank(math.Abs(bank), tas) * math.Sign(bank)
		if bank > 0 {
			bank = max(0, bank-maxBankRate)
		} else {
			bank = min(0, bank+maxBankRate)
		}
	}

	remaining := math.HeadingSignedTurn(nav.FlightState.Heading, targetHeading)
	if turn == TurnLeft && remaining > 0 {
		remaining -= 360
	} else if turn == TurnRight && remaining < 0 {
		remaining += 360
	}

	if math.Abs(levelOut) >= math.Abs(remaining) && math.Sign(levelOut) == math.Sign(remaining) {
		// Roll out
		if nav.FlightState.BankAngle > 0 {
			nav.FlightState.BankAngle = max(0, nav.FlightState.BankAngle-maxBankRate)
		} else {
			nav.FlightState.BankAngle = min(0, nav.FlightState.BankAngle+maxBankRate)
		}
	} else {
		// Roll toward the target bank
		if nav.FlightState.BankAngle < targetBank {
			nav.FlightState.BankAngle = min(targetBank, nav.FlightState.BankAngle+maxBankRate)
		} else {
			nav.FlightState.BankAngle = max(targetBank, nav.FlightState.BankAngle-maxBankRate)
		}
	}

	actualRate := turnRateForBank(math.Abs(nav.FlightState.BankAngle), tas) * math.Sign(nav.FlightState.BankAngle)
	if math.Abs(actualRate) >= math.Abs(remaining) {
		nav.FlightState.Heading = targetHeading
		nav.FlightState.BankAngle = 0
	} else {
		nav.FlightState.Heading = math.NormalizeHeading(nav.FlightState.Heading + actualRate)
	}
}

func (nav *Nav) updatePositionAndGS(wind Wind, lg *log.Logger) {
	// Calculate offset vector based on heading and current TAS.
	hdg := nav.FlightState.Heading
	TAS := nav.TAS()
	flightVector := math.Scale2f(math.HeadingVector(hdg), TAS)

	// Further offset based on the wind while airborne.
	var windVector math.Point2NM
	if nav.IsAirborne() {
		windVector = wind.Vector()
	}

	// Update the aircraft's state.
	newVector := math.Add2f(flightVector, windVector)
	nav.FlightState.Position = math.Add2f(nav.FlightState.Position, math.Scale2f(newVector, 1.0/3600))
	nav.FlightState.GS = math.Length2f(newVector)
}

// updateWaypoints checks whether the aircraft has arrived at its next
// waypoint; if so it applies the waypoint's effects and trims the route.
// The passed waypoint is returned, if any.
func (nav *Nav) updateWaypoints(wind Wind, simTime time.Time, lg *log.Logger) *av.Waypoint {
	if len(nav.Waypoints) == 0 {
		return nil
	}
	if nav.Heading.Hold != nil {
		// In a hold; the state machine brings the aircraft back over the
		// fix when the hold is cancelled.
		return nil
	}
	if _, ok := nav.AssignedHeading(); ok {
		// On a vector; fixes don't sequence until the aircraft is back
		// on its own navigation.
		return nil
	}

	wp := nav.Waypoints[0]

	// Are we nearly at the fix and is it time to turn for the outbound
	// heading? First, figure out the outbound heading.
	var hdg float32
	if nfa, ok := nav.FixAssignments[wp.Fix]; ok && nfa.Depart.Heading != nil {
		hdg = *nfa.Depart.Heading
	} else if nfa.Depart.Fix != nil {
		hdg = math.Heading2f(wp.Location, nfa.Depart.Fix.Location)
	} else if wp.Heading != 0 {
		// Leaving the next fix on a specified heading rather than
		// direct to the following fix.
		hdg = float32(wp.Heading)
	} else if len(nav.Waypoints) > 1 {
		// Otherwise, find the heading to the following fix.
		hdg = math.Heading2f(wp.Location, nav.Waypoints[1].Location)
	} else {
		// No more waypoints (likely about to land), so just
		// plan to stay on the current heading.
		hdg = nav.FlightState.Heading
	}

	passedWaypoint := wp.FlyOver && nav.shouldFlyOver(wp)
	if !wp.FlyOver {
		passedWaypoint = nav.shouldTurnForOutbound(wp.Location, hdg, TurnClosest, wind, simTime, lg)
	}

	if !passedWaypoint {
		return nil
	}

	if nfa, ok := nav.FixAssignments[wp.Fix]; ok && nfa.Hold != nil {
		// Controller-issued hold at this fix.
		nav.startHold(*nfa.Hold, simTime)
		delete(nav.FixAssignments, wp.Fix)
		return &wp
	}

	switch wp.Kind() {
	case av.LegHold:
		// Published hold at this fix. Keep the fix at the head of the
		// route; the hold exits inbound at the fix and then resumes.
		nav.startHold(*wp.Hold, simTime)
		nav.Waypoints[0].Hold = nil
		return &wp
	case av.LegApproach:
		if nav.Approach.Cleared {
			nav.Approach.PassedApproachFix = true
			if wp.FAF {
				nav.Approach.PassedFAF = true
			}
		}
	case av.LegDirect:
		// No leg-specific state to update.
	}

	// Waypoint altitude/speed restrictions are carried forward so we keep
	// working toward them if not yet satisfied.
	if wp.AltitudeRestriction != nil && (!nav.Approach.Cleared || wp.AltitudeRestriction.Range[0] < nav.FlightState.Altitude) {
		// Don't climb if we're cleared approach and below the next
		// fix's altitude.
		nav.Altitude.Restriction = wp.AltitudeRestriction
	}
	if wp.Speed > 0 {
		spd := float32(wp.Speed)
		nav.Speed.Restriction = &spd
	}

	if nfa, ok := nav.FixAssignments[wp.Fix]; ok && nfa.Depart.Heading != nil {
		// Controller-assigned heading at the fix.
		h := *nfa.Depart.Heading
		nav.Heading = NavHeading{Assigned: &h}
		delete(nav.FixAssignments, wp.Fix)
	} else if nfa.Depart.Fix != nil {
		if idx := waypointIndex(nav.Waypoints, nfa.Depart.Fix.Fix); idx != -1 {
			nav.Waypoints = nav.Waypoints[idx:]
			delete(nav.FixAssignments, wp.Fix)
			return &wp
		}
	} else if wp.Heading != 0 {
		// We have an outbound heading to fly after passing the waypoint.
		h := float32(wp.Heading)
		nav.Heading = NavHeading{Assigned: &h}
	}

	nav.Waypoints = nav.Waypoints[1:]
	return &wp
}

func waypointIndex(wps []av.Waypoint, fix string) int {
	for i, wp := range wps {
		if wp.Fix == fix {
			return i
		}
	}
	return -1
}

func (nav *Nav) shouldFlyOver(wp av.Waypoint) bool {
	dist := math.Distance2f(nav.FlightState.Position, wp.Location)
	eta := dist / nav.FlightState.GS * 3600 // seconds
	return eta < 2
}

// shouldTurnForOutbound returns true when the aircraft should start the
// turn to the outbound heading so as to smoothly join the outbound course
// from the fix p. It simulates the turn ahead of time and checks which
// side of the outbound course line the aircraft ends up on.
func (nav *Nav) shouldTurnForOutbound(p math.Point2NM, hdg float32, turn TurnMethod, wind Wind, simTime time.Time, lg *log.Logger) bool {
	dist := math.Distance2f(nav.FlightState.Position, p)
	eta := dist / nav.FlightState.GS * 3600 // in seconds

	// Always start the turn if we've almost passed the fix.
	if eta < 2 {
		return true
	}

	// Alternatively, if we're far away w.r.t. the needed turn, don't even
	// consider it. It doesn't matter if the ETA estimate doesn't
	// account for the turn acceleration, since any turn will be started
	// regardless if we're in the window of coming soon.
	turnAngle := TurnAngle(nav.FlightState.Heading, hdg, turn)
	if s := turnAngle/2 + 2; eta > s {
		return false
	}

	// Get two points that give the line of the outbound course.
	p0 := p
	p1 := math.Add2f(p0, math.HeadingVector(hdg))

	// Make a ghost aircraft to simulate the turn.
	nav2 := *nav
	nav2.Heading = NavHeading{Assigned: &hdg, Turn: &turn}
	nav2.DeferredNavHeading = nil
	nav2.Approach.InterceptState = NotIntercepting // avoid recursive calls..

	initialDist := math.SignedPointLineDistance(nav2.FlightState.Position, p0, p1)

	// Don't simulate the turn longer than it will take to do it.
	n := int(1 + turnAngle/3)
	for i := 0; i < n; i++ {
		nav2.updateHeading(wind, simTime, lg)
		nav2.updatePositionAndGS(wind, lg)
		curDist := math.SignedPointLineDistance(nav2.FlightState.Position, p0, p1)
		if math.Sign(initialDist) != math.Sign(curDist) {
			// Aircraft is on the other side of the line than it started.
			// Find the exact time the sign changed and then see how
			// close both are to the line.
			return true
		}
	}
	return false
}

// shouldTurnToIntercept returns true when the aircraft should start
// turning to intercept a course from p0 along the heading hdg so that it
// smoothly rolls out onto the course.
func (nav *Nav) shouldTurnToIntercept(p0 math.Point2NM, hdg float32, turn TurnMethod, wind Wind, simTime time.Time, lg *log.Logger) bool {
	p0 = math.Add2f(p0, math.Scale2f(math.HeadingVector(hdg), -10)) // back it up a bit
	p1 := math.Add2f(p0, math.HeadingVector(hdg))

	initialDist := math.SignedPointLineDistance(nav.FlightState.Position, p0, p1)
	eta := math.Abs(initialDist) / nav.FlightState.GS * 3600 // in seconds
	if eta < 2 {
		// Just in case, start the turn
		return true
	}

	// As above, don't consider starting the turn if we're too far away.
	turnAngle := TurnAngle(nav.FlightState.Heading, hdg, turn)
	if s := turnAngle/2 + 2; eta > s {
		return false
	}

	nav2 := *nav
	nav2.Heading = NavHeading{Assigned: &hdg, Turn: &turn}
	nav2.DeferredNavHeading = nil
	nav2.Approach.InterceptState = NotIntercepting // avoid recursive calls..

	n := int(1 + turnAngle) // as above, turn is at least 1 deg/s
	for i := 0; i < n; i++ {
		nav2.updateHeading(wind, simTime, lg)
		nav2.updatePositionAndGS(wind, lg)
		curDist := math.SignedPointLineDistance(nav2.FlightState.Position, p0, p1)
		if math.Sign(initialDist) != math.Sign(curDist) && math.Abs(curDist) < 0.25 &&
			math.Abs(math.HeadingDifference(hdg, nav2.FlightState.Heading)) < 10 {
			return true
		}
		if math.Abs(curDist) < 0.02 {
			// Virtually on the line
			return true
		}
	}
	return false
}
