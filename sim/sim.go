// sim/sim.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package sim is the deterministic simulation core: it owns the aircraft
// set, advances them in fixed one second ticks, applies buffered
// controller instructions at tick boundaries, and runs the separation
// scan as a barrier at the end of each tick.
package sim

import (
	"fmt"
	"log/slog"
	"time"

	"tracon/log"
	"tracon/nav"
	"tracon/util"

	"github.com/brunoga/deep"
	"golang.org/x/sync/errgroup"
)

// TickDuration is the fixed logical time step. Wall-clock pacing only
// controls how many steps run per real second; the engine itself never
// looks at the wall clock.
const TickDuration = time.Second

type Sim struct {
	mu util.LoggingMutex
	lg *log.Logger

	Scenario *Scenario
	Aircraft map[string]*Aircraft

	SimTime time.Time
	Tick    int64

	detector    *ConflictDetector
	eventStream *EventStream

	// Instruction queue and history; see instructions.go.
	nextSeq int64
	pending []Instruction
	history map[string][]*InstructionRecord
	active  map[string]map[ControlAxis]*InstructionRecord

	recorder *ReplayRecorder

	// Wall-clock pacing state for Update.
	SimRate        float32
	Paused         bool
	lastUpdateTime time.Time
	updateTimeSlop time.Duration
}

var simStartTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func NewSim(sc *Scenario, lg *log.Logger) (*Sim, error) {
	s := &Sim{
		lg:          lg,
		Scenario:    sc,
		Aircraft:    make(map[string]*Aircraft),
		SimTime:     simStartTime,
		detector:    NewConflictDetector(sc.Conflict, lg),
		eventStream: NewEventStream(lg),
		history:     make(map[string][]*InstructionRecord),
		active:      make(map[string]map[ControlAxis]*InstructionRecord),
		SimRate:     1,
	}

	for i, spec := range sc.Aircraft {
		ac := &Aircraft{Callsign: spec.Callsign, Type: spec.Type}
		s.Aircraft[spec.Callsign] = ac

		perf, ok := sc.AircraftTypes[spec.Type]
		if !ok {
			// Reference data problem: keep the aircraft, frozen, rather
			// than failing the scenario.
			err := fmt.Errorf("%q: %w", spec.Type, ErrUnknownAircraftType)
			ac.freeze(err.Error())
			lg.Errorf("%s: %v", spec.Callsign, err)
		}

		route, err := sc.resolveRoute(spec.Route)
		if err != nil {
			ac.freeze(err.Error())
			lg.Errorf("%s: %v", spec.Callsign, err)
		}

		finalAlt := spec.FinalAltitude
		if finalAlt == 0 {
			finalAlt = spec.Altitude
		}

		// Each aircraft gets its own deterministic random stream.
		seed := sc.Seed + int64(i)
		n, err := nav.MakeNav(perf, sc.NavParams, route, sc.FixDB,
			spec.Position, spec.Altitude, spec.IAS, finalAlt, seed)
		if err != nil {
			if !ac.Frozen {
				ac.freeze(err.Error())
				lg.Errorf("%s: %v", spec.Callsign, err)
			}
			// Still need nav state to carry the last valid target.
			var fallback nav.Nav
			fallback.FlightState.Position = spec.Position
			fallback.FlightState.Altitude = spec.Altitude
			fallback.FlightState.IAS = spec.IAS
			n = &fallback
		}
		ac.Nav = n
	}

	return s, nil
}

// Events returns a subscription to the simulation's event stream.
func (s *Sim) Events() *EventsSubscription {
	return s.eventStream.Subscribe()
}

// SetRecorder attaches a replay recorder; each subsequent tick appends
// one frame.
func (s *Sim) SetRecorder(r *ReplayRecorder) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.recorder = r
}

// Step advances the simulation one tick and returns the conflict
// transitions observed at the end of it.
func (s *Sim) Step() ConflictDelta {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.step()
}

func (s *Sim) step() ConflictDelta {
	s.Tick++
	s.SimTime = s.SimTime.Add(TickDuration)

	// Stage 1: drain the instruction queue in issuance order.
	s.applyPendingInstructions()

	// Stage 2: advance every aircraft. Aircraft state is exclusively
	// owned, so this runs concurrently; the Wait call is the barrier the
	// conflict scan requires.
	var g errgroup.Group
	for _, ac := range s.Aircraft {
		ac := ac
		g.Go(func() error {
			ac.Step(s.Scenario.Wind, s.SimTime, s.lg)
			return nil
		})
	}
	g.Wait()

	s.postAircraftEvents()

	// Stage 3: the conflict scan, over the completed physical state of
	// all aircraft for this tick.
	samples, unresolved := s.sampleAircraft()
	delta := s.detector.Scan(s.Tick, samples, unresolved)

	for _, c := range delta.Raised {
		s.eventStream.Post(Event{Type: ConflictRaisedEvent, Tick: s.Tick, Pair: c.Pair})
		s.setConflictAlert(c.Pair, true)
	}
	for _, c := range delta.Cleared {
		s.eventStream.Post(Event{Type: ConflictClearedEvent, Tick: s.Tick, Pair: c.Pair})
		s.setConflictAlert(c.Pair, false)
	}

	if s.recorder != nil {
		if err := s.recorder.WriteFrame(s.makeFrame()); err != nil {
			s.lg.Errorf("replay: %v", err)
			s.recorder = nil
		}
	}

	return delta
}

// postAircraftEvents reports state transitions that happened during the
// aircraft stage of the tick.
func (s *Sim) postAircraftEvents() {
	for _, callsign := range util.SortedMapKeys(s.Aircraft) {
		ac := s.Aircraft[callsign]
		for _, ev := range ac.events {
			ev.Tick = s.Tick
			ev.Callsign = callsign
			s.eventStream.Post(ev)
		}
		ac.events = ac.events[:0]
		if ac.Landed && !ac.landedReported {
			ac.landedReported = true
			s.eventStream.Post(Event{Type: AircraftLandedEvent, Tick: s.Tick, Callsign: callsign})
		}
		if ac.Frozen && !ac.frozenReported {
			ac.frozenReported = true
			s.eventStream.Post(Event{Type: AircraftFrozenEvent, Tick: s.Tick, Callsign: callsign,
				Text: ac.FrozenReason})
		}
	}
}

// sampleAircraft snapshots the physical state the conflict detector
// needs. Landed aircraft are out of the system; frozen aircraft have no
// trustworthy position, so they are reported as unresolved rather than
// scanned.
func (s *Sim) sampleAircraft() ([]aircraftSample, []string) {
	var samples []aircraftSample
	var unresolved []string
	for _, callsign := range util.SortedMapKeys(s.Aircraft) {
		ac := s.Aircraft[callsign]
		if ac.Landed {
			continue
		}
		if ac.Frozen {
			unresolved = append(unresolved, callsign)
			continue
		}
		samples = append(samples, aircraftSample{
			callsign: callsign,
			position: ac.Nav.FlightState.Position,
			altitude: ac.Nav.FlightState.Altitude,
		})
	}
	return samples, unresolved
}

func (s *Sim) setConflictAlert(pair ConflictPair, alert bool) {
	for _, callsign := range pair {
		if ac, ok := s.Aircraft[callsign]; ok {
			ac.ConflictAlert = alert
		}
	}
}

// Update advances the simulation according to elapsed wall-clock time
// and the sim rate; it is the pacing entry point for interactive use.
func (s *Sim) Update() {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if s.lastUpdateTime.IsZero() {
		s.lastUpdateTime = time.Now()
	}
	elapsed := time.Since(s.lastUpdateTime)
	s.lastUpdateTime = time.Now()

	if s.Paused {
		return
	}

	elapsed = time.Duration(float32(elapsed)*s.SimRate) + s.updateTimeSlop
	if elapsed > 10*TickDuration {
		// Don't try to catch up after a long stall; drop the backlog.
		s.lg.Warn("dropping accumulated simulation time", slog.Duration("elapsed", elapsed))
		elapsed = TickDuration
	}
	for elapsed >= TickDuration {
		s.step()
		elapsed -= TickDuration
	}
	s.updateTimeSlop = elapsed
}

// Snapshot returns a copy of an aircraft's current state for inspection.
// The copy shares nothing with the live aircraft; later ticks do not
// change it.
func (s *Sim) Snapshot(callsign string) (Aircraft, bool) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	ac, ok := s.Aircraft[callsign]
	if !ok {
		return Aircraft{}, false
	}
	snap := *ac
	snap.Nav = deep.MustCopy(ac.Nav)
	snap.events = nil
	return snap, true
}

// ActiveConflicts returns the currently active conflict set.
func (s *Sim) ActiveConflicts() []Conflict {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.detector.Active()
}

// ConflictRecords returns the completed conflict records.
func (s *Sim) ConflictRecords() []Conflict {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.detector.Records()
}

// AllLanded reports whether every active aircraft has landed.
func (s *Sim) AllLanded() bool {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	for _, ac := range s.Aircraft {
		if !ac.Landed && !ac.Frozen {
			return false
		}
	}
	return true
}
