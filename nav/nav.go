// nav/nav.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package nav models a single aircraft's flight: the per-tick kinematic
// integration of its physical state and the navigation logic that turns its
// route, holds, approach clearances, and controller assignments into
// momentary heading, altitude, and speed targets.
package nav

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	av "tracon/aviation"
	"tracon/math"
	"tracon/rand"

	"github.com/brunoga/deep"
)

// Errors used by the nav package
var (
	ErrClearedForUnexpectedApproach = errors.New("Cleared for unexpected approach")
	ErrFixIsTooFarAway              = errors.New("Fix is too far away")
	ErrFixNotInRoute                = errors.New("Fix not in aircraft's route")
	ErrInvalidAltitude              = errors.New("Invalid altitude")
	ErrInvalidApproach              = errors.New("Invalid approach")
	ErrInvalidFix                   = errors.New("Invalid fix")
	ErrInvalidHeading               = errors.New("Invalid heading")
	ErrInvalidSpeed                 = errors.New("Invalid speed")
	ErrNotClearedForApproach        = errors.New("Aircraft has not been cleared for an approach")
	ErrNotFlyingRoute               = errors.New("Aircraft is not currently flying its assigned route")
	ErrNotIntercepted               = errors.New("Aircraft has not intercepted the approach course")
	ErrNotOnHeading                 = errors.New("Aircraft was not assigned a heading")
	ErrUnableCommand                = errors.New("Unable")
	ErrUnknownApproach              = errors.New("Unknown approach")
)

// Params collects the tunable constants of the navigation model so that
// they live in configuration rather than scattered magic numbers.
type Params struct {
	// Localizer capture
	InterceptMaxAngle  float32 `yaml:"interceptMaxAngle"`  // degrees; beyond this we fly through the localizer
	InterceptTolerance float32 `yaml:"interceptTolerance"` // nm from the extended centerline to call it captured
	FinalApproachNM    float32 `yaml:"finalApproach"`      // nm from threshold treated as final approach

	// Hold timing when the hold itself doesn't specify leg minutes
	HoldLegMinutesLow    float32 `yaml:"holdLegMinutesLow"`
	HoldLegMinutesHigh   float32 `yaml:"holdLegMinutesHigh"`
	HoldLegAltitudeBreak float32 `yaml:"holdLegAltitudeBreak"` // feet

	// Pilot response delays, seconds; actual delay is min + rand*(max-min)
	DelayHeadingMin float32 `yaml:"delayHeadingMin"`
	DelayHeadingMax float32 `yaml:"delayHeadingMax"`
	DelayRouteMin   float32 `yaml:"delayRouteMin"`
	DelayRouteMax   float32 `yaml:"delayRouteMax"`
}

func DefaultParams() Params {
	return Params{
		InterceptMaxAngle:    45,
		InterceptTolerance:   0.2,
		FinalApproachNM:      6,
		HoldLegMinutesLow:    1.0,
		HoldLegMinutesHigh:   1.5,
		HoldLegAltitudeBreak: 14000,
		DelayHeadingMin:      4,
		DelayHeadingMax:      7,
		DelayRouteMin:        4,
		DelayRouteMax:        9,
	}
}

// Wind is a uniform wind field over the simulated area.
type Wind struct {
	Direction float32 `yaml:"direction"` // direction the wind blows from, degrees
	Speed     float32 `yaml:"speed"`     // knots
}

// Vector returns the velocity of the airmass in knots.
func (w Wind) Vector() math.Point2NM {
	// The wind blows from Direction, so the airmass moves the opposite way.
	return math.Scale2f(math.HeadingVector(math.OppositeHeading(w.Direction)), w.Speed)
}

// Deflection returns the signed crab angle in degrees needed so that an
// aircraft whose air velocity is v tracks its intended course.
func (w Wind) Deflection(v math.Point2NM) float32 {
	if w.Speed == 0 || math.Length2f(v) == 0 {
		return 0
	}
	track := math.Add2f(v, w.Vector())
	return math.HeadingSignedTurn(math.VectorHeading(v), math.VectorHeading(track))
}

// Component returns the tailwind component in knots along the given
// course; negative for a headwind.
func (w Wind) Component(course float32) float32 {
	return math.Dot(w.Vector(), math.HeadingVector(course))
}

// State related to navigation. Pointers are used for optional values; nil
// -> unset/unspecified.
type Nav struct {
	FlightState FlightState
	Perf        av.AircraftPerformance
	Params      Params
	Altitude    NavAltitude
	Speed       NavSpeed
	Heading     NavHeading
	Approach    NavApproach

	FixAssignments map[string]NavFixAssignment

	// DeferredNavHeading stores a heading/direct fix assignment from the
	// controller that the pilot has not yet started to follow.  Only a
	// single such assignment is stored; a second instruction issued
	// before the first is followed simply overrides it.
	DeferredNavHeading *DeferredNavHeading

	FinalAltitude float32
	Waypoints     []av.Waypoint

	// Fixes is the scenario's shared fix database, used to resolve
	// direct-to-fix instructions.
	Fixes av.FixDB

	Rand *rand.Rand
}

// DeferredNavHeading stores a heading or route assignment from the
// controller and the time at which to start executing it; the time is a
// few seconds after the instruction to model the delay before pilots
// start to follow assignments.
type DeferredNavHeading struct {
	Time    time.Time
	Heading *float32
	Turn    *TurnMethod
	Hold    *FlyHold
	// For direct fix, this will be the updated set of waypoints.
	Waypoints []av.Waypoint
}

// NavSnapshot captures all controller-modifiable state in Nav for rollback
// purposes. It does not include FlightState, only control assignments.
type NavSnapshot struct {
	Altitude           NavAltitude
	Speed              NavSpeed
	Heading            NavHeading
	Approach           NavApproach
	Waypoints          []av.Waypoint
	DeferredNavHeading *DeferredNavHeading
	FixAssignments     map[string]NavFixAssignment
}

// TakeSnapshot captures the current controller-modifiable nav state for
// later rollback.
func (nav *Nav) TakeSnapshot() NavSnapshot {
	return deep.MustCopy(NavSnapshot{
		Altitude:           nav.Altitude,
		Speed:              nav.Speed,
		Heading:            nav.Heading,
		Approach:           nav.Approach,
		Waypoints:          nav.Waypoints,
		DeferredNavHeading: nav.DeferredNavHeading,
		FixAssignments:     nav.FixAssignments,
	})
}

// RestoreSnapshot restores nav state from a previously captured snapshot.
func (nav *Nav) RestoreSnapshot(snap NavSnapshot) {
	nav.Altitude = snap.Altitude
	nav.Speed = snap.Speed
	nav.Heading = snap.Heading
	nav.Approach = snap.Approach
	nav.Waypoints = snap.Waypoints
	nav.DeferredNavHeading = snap.DeferredNavHeading
	nav.FixAssignments = snap.FixAssignments
}

type FlightState struct {
	InitialDepartureClimb bool
	DepartureElevation    float32

	Position     math.Point2NM
	Heading      float32
	Altitude     float32
	PrevAltitude float32
	IAS, GS      float32 // speeds...
	BankAngle    float32 // degrees
	AltitudeRate float32 // + -> climb, - -> descent
}

func (fs *FlightState) Summary() string {
	return fmt.Sprintf("heading %03d altitude %.0f ias %.1f gs %.1f",
		int(fs.Heading), fs.Altitude, fs.IAS, fs.GS)
}

func (fs FlightState) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("position", fs.Position),
		slog.Float64("heading", float64(fs.Heading)),
		slog.Float64("altitude", float64(fs.Altitude)),
		slog.Float64("ias", float64(fs.IAS)),
		slog.Float64("gs", float64(fs.GS)),
	)
}

type NavAltitude struct {
	Assigned *float32 // controller assigned
	Cleared  *float32 // from initial clearance
	Expedite bool

	// Carried after passing a waypoint if we were unable to meet the
	// restriction at the waypoint; we keep trying until we get there (or
	// are given another instruction..)
	Restriction *av.AltitudeRestriction
}

type NavSpeed struct {
	Assigned *float32
	// Carried after passing a waypoint
	Restriction *float32
}

const MaxIAS = 290

type NavHeading struct {
	Assigned *float32
	Turn     *TurnMethod
	Hold     *FlyHold
}

type NavApproach struct {
	Assigned          *av.Approach
	AssignedId        string
	Cleared           bool
	ClearedToLand     bool
	InterceptState    InterceptState
	PassedApproachFix bool // have we passed a fix on the approach yet?
	PassedFAF         bool
}

type NavFixAssignment struct {
	Arrive struct {
		Altitude *av.AltitudeRestriction
		Speed    *float32
	}
	Depart struct {
		Fix     *av.Waypoint
		Heading *float32
	}
	Hold *av.Hold
}

type InterceptState int

const (
	NotIntercepting InterceptState = iota
	InitialHeading
	TurningToJoin
	OnApproachCourse
)

// MakeNav initializes navigation state for an aircraft that starts at the
// first waypoint of its route (or at the given position if the route is
// empty), at the given altitude and airspeed.
func MakeNav(perf av.AircraftPerformance, params Params, wps []av.Waypoint, fixes av.FixDB,
	position math.Point2NM, altitude, ias, finalAltitude float32, seed int64) (*Nav, error) {
	if err := perf.Validate(); err != nil {
		return nil, err
	}

	r := rand.NewWithSeed(seed)
	nav := &Nav{
		Perf:           perf,
		Params:         params,
		FinalAltitude:  finalAltitude,
		FixAssignments: make(map[string]NavFixAssignment),
		Fixes:          fixes,
		Rand:           &r,
	}

	// Copy the provided waypoints so that local modifications don't
	// pollute the waypoints stored for the scenario.
	nav.Waypoints = make([]av.Waypoint, len(wps))
	copy(nav.Waypoints, wps)

	nav.FlightState = FlightState{
		Position: position,
		Altitude: altitude,
		IAS:      ias,
		// This won't be quite right but it's better than leaving GS to be
		// 0 for the first update tick, which leads to various Inf and NaN
		// cases...
		GS: ias,
	}

	if len(nav.Waypoints) > 0 {
		nav.FlightState.Heading = math.Heading2f(position, nav.Waypoints[0].Location)
	}
	if nav.FlightState.Heading == 0 {
		nav.FlightState.Heading = 360
	}

	return nav, nil
}

func (nav *Nav) TAS() float32 {
	tas := av.IASToTAS(nav.FlightState.IAS, nav.FlightState.Altitude)
	tas = min(tas, nav.Perf.Speed.CruiseTAS)
	return tas
}

func (nav *Nav) v2() float32 {
	// Approximate from the landing speed; we don't carry V2 in the
	// performance data.
	return 0.95 * nav.Perf.Speed.Landing
}

func (nav *Nav) IsAirborne() bool {
	return nav.FlightState.IAS >= nav.v2()
}

// AssignedHeading returns the aircraft's current heading assignment, if
// any, regardless of whether the pilot has yet started following it.
func (nav *Nav) AssignedHeading() (float32, bool) {
	if dh := nav.DeferredNavHeading; dh != nil {
		if dh.Heading != nil {
			return *dh.Heading, true
		}
	} else if nav.Heading.Assigned != nil {
		return *nav.Heading.Assigned, true
	}
	return 0, false
}

func (nav *Nav) EnqueueHeading(hdg float32, turn TurnMethod, simTime time.Time) {
	var delay float32
	if nav.Heading.Assigned != nil && nav.DeferredNavHeading == nil {
		// Already in heading mode; have less of a delay.
		delay = nav.Params.DelayHeadingMin +
			(nav.Params.DelayHeadingMax-nav.Params.DelayHeadingMin)*nav.Rand.Float32()
	} else {
		// Route following -> heading mode; a touch longer.
		delay = nav.Params.DelayRouteMin +
			(nav.Params.DelayRouteMax-nav.Params.DelayRouteMin)*nav.Rand.Float32()
	}

	nav.DeferredNavHeading = &DeferredNavHeading{
		Time:    simTime.Add(time.Duration(delay * float32(time.Second))),
		Heading: &hdg,
		Turn:    &turn,
	}
}

// AssignedWaypoints returns the route that should be flown following a
// controller instruction. If an instruction has been issued but the delay
// hasn't passed, these are different than the waypoints currently being
// used for navigation.
func (nav *Nav) AssignedWaypoints() []av.Waypoint {
	if dh := nav.DeferredNavHeading; dh != nil && len(dh.Waypoints) > 0 {
		return dh.Waypoints
	}
	return nav.Waypoints
}

func (nav *Nav) EnqueueDirectFix(wps []av.Waypoint, simTime time.Time) {
	var delay float32
	if nav.Heading.Assigned == nil && nav.DeferredNavHeading == nil {
		// Already following the route; have less of a delay.
		delay = nav.Params.DelayRouteMin +
			(nav.Params.DelayHeadingMax-nav.Params.DelayRouteMin)*nav.Rand.Float32()
	} else {
		delay = nav.Params.DelayRouteMin +
			(nav.Params.DelayRouteMax-nav.Params.DelayRouteMin)*nav.Rand.Float32()
	}

	nav.DeferredNavHeading = &DeferredNavHeading{
		Time:      simTime.Add(time.Duration(delay * float32(time.Second))),
		Waypoints: wps,
	}
}

func (nav *Nav) EnqueueOnCourse(simTime time.Time) {
	delay := nav.Params.DelayRouteMin +
		(nav.Params.DelayRouteMax-nav.Params.DelayRouteMin)*nav.Rand.Float32()
	nav.DeferredNavHeading = &DeferredNavHeading{
		Time: simTime.Add(time.Duration(delay * float32(time.Second))),
	}
}

func (nav *Nav) OnApproach(checkAltitude bool) bool {
	if !nav.Approach.Cleared {
		return false
	}

	if _, assigned := nav.AssignedHeading(); assigned {
		return false
	}

	// The aircraft either must have passed a fix on the approach or be on
	// the localizer and also be above any upcoming altitude restrictions.
	if !nav.Approach.PassedApproachFix && nav.Approach.InterceptState != OnApproachCourse {
		return false
	}

	if !checkAltitude {
		return true
	}

	for _, wp := range nav.Waypoints {
		if r := wp.AltitudeRestriction; r != nil {
			return nav.FlightState.Altitude >= r.TargetAltitude(nav.FlightState.Altitude)
		}
	}
	return true
}

// OnExtendedCenterline checks if the flight position is less than
// maxNmDeviation from the infinite line defined by the assigned approach
// localizer.
func (nav *Nav) OnExtendedCenterline(maxNmDeviation float32) bool {
	approach := nav.Approach.Assigned
	if approach == nil {
		return false
	}

	cl := approach.Line()
	distance := math.Abs(math.SignedPointLineDistance(nav.FlightState.Position, cl[0], cl[1]))
	return distance < maxNmDeviation
}

func (nav *Nav) InterceptedButNotCleared() bool {
	return nav.Approach.InterceptState == OnApproachCourse && !nav.Approach.Cleared
}

// Summary returns a human-readable description of the current nav state.
func (nav *Nav) Summary() string {
	var lines []string
	lines = append(lines, nav.FlightState.Summary())

	if nav.Altitude.Assigned != nil {
		lines = append(lines, fmt.Sprintf("assigned altitude %.0f", *nav.Altitude.Assigned))
	}
	if nav.Speed.Assigned != nil {
		lines = append(lines, fmt.Sprintf("assigned speed %.0f", *nav.Speed.Assigned))
	}
	if hdg, ok := nav.AssignedHeading(); ok {
		lines = append(lines, fmt.Sprintf("assigned heading %03d", int(hdg)))
	}
	if hold := nav.Heading.Hold; hold != nil {
		lines = append(lines, "holding at "+hold.Hold.Fix+", "+hold.State.String())
	}
	if nav.Approach.Cleared {
		lines = append(lines, "cleared "+nav.Approach.AssignedId+" approach")
	}
	if len(nav.Waypoints) > 0 {
		var fixes []string
		for _, wp := range nav.Waypoints {
			fixes = append(fixes, wp.Fix)
		}
		lines = append(lines, "route "+strings.Join(fixes, " "))
	}

	return strings.Join(lines, "\n")
}
