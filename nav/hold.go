// nav/hold.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"time"

	av "tracon/aviation"
	"tracon/log"
	"tracon/math"
)

// Seconds flown outbound for the teardrop and parallel entry legs.
const entryLegSeconds = 70

type HoldState int

const (
	HoldTeardropLeg HoldState = iota
	HoldParallelLeg
	HoldParallelTurn
	HoldOutboundTurn
	HoldOutboundLeg
	HoldInboundTurn
	HoldInboundLeg
)

func (s HoldState) String() string {
	return [...]string{"teardrop entry", "parallel entry", "parallel turn",
		"outbound turn", "outbound leg", "inbound turn", "inbound leg"}[s]
}

// FlyHold tracks an aircraft's progress around a holding pattern.
type FlyHold struct {
	Hold  av.Hold
	State HoldState
	Entry av.HoldEntry

	// End time of the current timed leg, during the states that fly one.
	LegDeadline time.Time

	// Cancel set means to exit the hold the next time the aircraft
	// reaches the fix inbound.
	Cancel bool
}

type holdStateFunc func(nav *Nav, fh *FlyHold, wind Wind, simTime time.Time, lg *log.Logger) (float32, TurnMethod, float32)

var holdStateFuncs map[HoldState]holdStateFunc

func init() {
	holdStateFuncs = map[HoldState]holdStateFunc{
		HoldTeardropLeg:  holdTeardropLeg,
		HoldParallelLeg:  holdParallelLeg,
		HoldParallelTurn: holdParallelTurn,
		HoldOutboundTurn: holdOutboundTurn,
		HoldOutboundLeg:  holdOutboundLeg,
		HoldInboundTurn:  holdInboundTurn,
		HoldInboundLeg:   holdInboundLeg,
	}
}

// startHold is called when the aircraft crosses a fix it has been told to
// hold at; it classifies the entry from the arrival heading and hands
// lateral guidance over to the hold state machine.
func (nav *Nav) startHold(hold av.Hold, simTime time.Time) {
	fh := &FlyHold{Hold: hold, Entry: hold.Entry(nav.FlightState.Heading)}

	switch fh.Entry {
	case av.HoldEntryDirect:
		fh.State = HoldOutboundTurn
	case av.HoldEntryTeardrop:
		fh.State = HoldTeardropLeg
		fh.LegDeadline = simTime.Add(entryLegSeconds * time.Second)
	case av.HoldEntryParallel:
		fh.State = HoldParallelLeg
		fh.LegDeadline = simTime.Add(entryLegSeconds * time.Second)
	}

	nav.Heading = NavHeading{Hold: fh}
	nav.DeferredNavHeading = nil
}

func (nav *Nav) updateHold(wind Wind, simTime time.Time, lg *log.Logger) (float32, TurnMethod, float32) {
	fh := nav.Heading.Hold
	return holdStateFuncs[fh.State](nav, fh, wind, simTime, lg)
}

// holdTurn maps the hold's published turn direction to a turn method;
// holds are right turns unless charted otherwise.
func holdTurn(d av.TurnDirection) TurnMethod {
	if d == av.TurnLeft {
		return TurnLeft
	}
	return TurnRight
}

// oppositeTurn is used for the parallel entry, which turns back against
// the pattern's direction.
func oppositeTurn(t TurnMethod) TurnMethod {
	if t == TurnLeft {
		return TurnRight
	}
	return TurnLeft
}

func (fh *FlyHold) outboundHeading() float32 {
	return math.OppositeHeading(fh.Hold.InboundCourse)
}

// legDuration returns how long the aircraft should fly the current
// outbound leg. When the hold charts a leg length in nm that distance
// governs; otherwise the leg is timed, with the outbound time adjusted
// for the wind so that the inbound leg comes out close to the target.
func (nav *Nav) holdLegDuration(fh *FlyHold, wind Wind) time.Duration {
	gsOut := max(50, nav.TAS()+wind.Component(fh.outboundHeading()))

	if fh.Hold.LegLengthNM > 0 {
		return time.Duration(fh.Hold.LegLengthNM / gsOut * 3600 * float32(time.Second))
	}

	minutes := fh.Hold.LegMinutes
	if minutes == 0 {
		if nav.FlightState.Altitude < nav.Params.HoldLegAltitudeBreak {
			minutes = nav.Params.HoldLegMinutesLow
		} else {
			minutes = nav.Params.HoldLegMinutesHigh
		}
	}

	// Time the outbound leg so that the inbound leg takes the target
	// time over the ground.
	gsIn := max(50, nav.TAS()+wind.Component(fh.Hold.InboundCourse))
	seconds := minutes * 60 * gsIn / gsOut

	return time.Duration(seconds * float32(time.Second))
}

// holdFix returns the location of the holding fix.
func (nav *Nav) holdFix(fh *FlyHold) math.Point2NM {
	if loc, ok := nav.Fixes.Lookup(fh.Hold.Fix); ok {
		return loc
	}
	// The fix should always resolve; fall back to the head of the route.
	if len(nav.Waypoints) > 0 {
		return nav.Waypoints[0].Location
	}
	return nav.FlightState.Position
}

func holdTeardropLeg(nav *Nav, fh *FlyHold, wind Wind, simTime time.Time, lg *log.Logger) (float32, TurnMethod, float32) {
	if !simTime.Before(fh.LegDeadline) {
		fh.State = HoldInboundTurn
		return holdInboundTurn(nav, fh, wind, simTime, lg)
	}

	// Outbound offset 30 degrees into the holding side.
	hdg := fh.outboundHeading()
	if holdTurn(fh.Hold.TurnDirection) == TurnRight {
		hdg = math.NormalizeHeading(hdg - 30)
	} else {
		hdg = math.NormalizeHeading(hdg + 30)
	}
	return hdg, holdTurn(fh.Hold.TurnDirection), StandardTurnRate
}

func holdParallelLeg(nav *Nav, fh *FlyHold, wind Wind, simTime time.Time, lg *log.Logger) (float32, TurnMethod, float32) {
	if !simTime.Before(fh.LegDeadline) {
		fh.State = HoldParallelTurn
		return holdParallelTurn(nav, fh, wind, simTime, lg)
	}

	// Parallel the outbound course on the non-holding side.
	return fh.outboundHeading(), TurnClosest, StandardTurnRate
}

func holdParallelTurn(nav *Nav, fh *FlyHold, wind Wind, simTime time.Time, lg *log.Logger) (float32, TurnMethod, float32) {
	// Turn back against the pattern direction to rejoin the inbound
	// course.
	turn := oppositeTurn(holdTurn(fh.Hold.TurnDirection))
	if math.Abs(math.HeadingDifference(nav.FlightState.Heading, fh.Hold.InboundCourse)) < 10 {
		fh.State = HoldInboundLeg
		return holdInboundLeg(nav, fh, wind, simTime, lg)
	}
	return fh.Hold.InboundCourse, turn, StandardTurnRate
}

func holdOutboundTurn(nav *Nav, fh *FlyHold, wind Wind, simTime time.Time, lg *log.Logger) (float32, TurnMethod, float32) {
	if math.Abs(math.HeadingDifference(nav.FlightState.Heading, fh.outboundHeading())) < 1 {
		fh.State = HoldOutboundLeg
		fh.LegDeadline = simTime.Add(nav.holdLegDuration(fh, wind))
		return holdOutboundLeg(nav, fh, wind, simTime, lg)
	}
	return fh.outboundHeading(), holdTurn(fh.Hold.TurnDirection), StandardTurnRate
}

func holdOutboundLeg(nav *Nav, fh *FlyHold, wind Wind, simTime time.Time, lg *log.Logger) (float32, TurnMethod, float32) {
	if !simTime.Before(fh.LegDeadline) {
		fh.State = HoldInboundTurn
		return holdInboundTurn(nav, fh, wind, simTime, lg)
	}

	hdg := fh.outboundHeading()
	hdg -= wind.Deflection(math.Scale2f(math.HeadingVector(hdg), nav.TAS()))
	return math.NormalizeHeading(hdg), TurnClosest, StandardTurnRate
}

func holdInboundTurn(nav *Nav, fh *FlyHold, wind Wind, simTime time.Time, lg *log.Logger) (float32, TurnMethod, float32) {
	if math.Abs(math.HeadingDifference(nav.FlightState.Heading, fh.Hold.InboundCourse)) < 10 {
		fh.State = HoldInboundLeg
		return holdInboundLeg(nav, fh, wind, simTime, lg)
	}
	return fh.Hold.InboundCourse, holdTurn(fh.Hold.TurnDirection), StandardTurnRate
}

func holdInboundLeg(nav *Nav, fh *FlyHold, wind Wind, simTime time.Time, lg *log.Logger) (float32, TurnMethod, float32) {
	fix := nav.holdFix(fh)

	// At the fix, either exit the hold or start another circuit. The
	// along-course component is negative on the inbound leg and crosses
	// zero at the fix.
	along := math.Dot(math.Sub2f(nav.FlightState.Position, fix),
		math.HeadingVector(fh.Hold.InboundCourse))
	if along > -0.3 {
		if fh.Cancel {
			nav.Heading = NavHeading{}
			return nav.FlightState.Heading, TurnClosest, StandardTurnRate
		}
		fh.State = HoldOutboundTurn
		return holdOutboundTurn(nav, fh, wind, simTime, lg)
	}

	// Track the inbound course to the fix, correcting for drift off the
	// course line.
	p0 := math.Add2f(fix, math.Scale2f(math.HeadingVector(fh.Hold.InboundCourse), -10))
	xtk := math.SignedPointLineDistance(nav.FlightState.Position, p0, fix)

	hdg := fh.Hold.InboundCourse + math.Clamp(-xtk*30, -30, 30)
	hdg -= wind.Deflection(math.Scale2f(math.HeadingVector(hdg), nav.TAS()))
	return math.NormalizeHeading(hdg), TurnClosest, StandardTurnRate
}
