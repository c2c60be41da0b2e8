// sim/instructions.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"slices"

	av "tracon/aviation"
	"tracon/nav"
)

// InstructionKind is the closed set of controller commands the simulation
// accepts.
type InstructionKind int

const (
	InstructionHeading InstructionKind = iota
	InstructionPresentHeading
	InstructionAltitude
	InstructionExpediteClimb
	InstructionExpediteDescent
	InstructionSpeed
	InstructionDirectFix
	InstructionDepartFixDirect
	InstructionDepartFixHeading
	InstructionCrossFixAt
	InstructionHold
	InstructionCancelHold
	InstructionExpectApproach
	InstructionClearedApproach
	InstructionClearedToLand
	InstructionCancelApproach
	InstructionResumeOwnNavigation
	InstructionGoAround
)

func (k InstructionKind) String() string {
	return [...]string{"heading", "present heading", "altitude", "expedite climb",
		"expedite descent", "speed", "direct fix", "depart fix direct", "depart fix heading", "cross fix at",
		"hold", "cancel hold", "expect approach", "cleared approach", "cleared to land",
		"cancel approach", "resume own navigation", "go around"}[k]
}

// ControlAxis groups instruction kinds by the part of the aircraft's
// control state they own; a new instruction supersedes the active one on
// the same axis.
type ControlAxis int

const (
	AxisHeading ControlAxis = iota
	AxisAltitude
	AxisSpeed
	AxisRoute
)

func (a ControlAxis) String() string {
	return [...]string{"heading", "altitude", "speed", "route"}[a]
}

func (k InstructionKind) Axis() ControlAxis {
	switch k {
	case InstructionHeading, InstructionPresentHeading:
		return AxisHeading
	case InstructionAltitude, InstructionExpediteClimb, InstructionExpediteDescent:
		return AxisAltitude
	case InstructionSpeed:
		return AxisSpeed
	default:
		return AxisRoute
	}
}

// Instruction is a discrete controller command for one aircraft. Only the
// fields relevant to the Kind are used.
type Instruction struct {
	Seq      int64
	Callsign string
	Kind     InstructionKind

	Heading    float32
	Turn       nav.TurnMethod
	Altitude   float32
	Speed      float32
	Fix        string
	Fix2       string // destination fix for depart-fix-direct
	Hold       av.Hold
	ApproachId string

	AltitudeRestriction *av.AltitudeRestriction
}

type InstructionStatus int

const (
	InstructionPending InstructionStatus = iota
	InstructionActive
	InstructionSuperseded
	InstructionCompleted
	InstructionRejected
)

func (s InstructionStatus) String() string {
	return [...]string{"pending", "active", "superseded", "completed", "rejected"}[s]
}

// InstructionRecord is the retained history entry for an issued
// instruction; records are appended and updated, never deleted.
type InstructionRecord struct {
	Instruction
	Status      InstructionStatus
	AppliedTick int64
	Readback    string
	Reason      string // rejection reason
}

// SubmitInstruction buffers an instruction for application at the start
// of the next tick, assigning it the next issuance sequence number. It
// returns the assigned sequence number, or an error if the instruction
// fails validation against the current state; rejected instructions are
// still recorded in the aircraft's history.
func (s *Sim) SubmitInstruction(instr Instruction) (int64, error) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	s.nextSeq++
	instr.Seq = s.nextSeq

	if err := s.validateInstruction(instr); err != nil {
		rec := &InstructionRecord{Instruction: instr, Status: InstructionRejected, Reason: err.Error()}
		s.history[instr.Callsign] = append(s.history[instr.Callsign], rec)
		s.eventStream.Post(Event{
			Type:     InstructionRejectedEvent,
			Callsign: instr.Callsign,
			Text:     instr.Kind.String() + ": " + err.Error(),
		})
		return instr.Seq, err
	}

	s.pending = append(s.pending, instr)
	return instr.Seq, nil
}

// validateInstruction does the static checks that can be made without
// applying the instruction: the aircraft must exist and be flying, and
// targets must be inside the performance envelope. Preconditions that
// depend on navigation state are rechecked when the instruction is
// applied.
func (s *Sim) validateInstruction(instr Instruction) error {
	ac, ok := s.Aircraft[instr.Callsign]
	if !ok {
		return ErrUnknownAircraft
	}
	if ac.Landed {
		return ErrAircraftLanded
	}
	if ac.Frozen {
		return ErrAircraftFrozen
	}

	switch instr.Kind {
	case InstructionHeading:
		if instr.Heading <= 0 || instr.Heading > 360 {
			return nav.ErrInvalidHeading
		}
	case InstructionAltitude:
		if instr.Altitude <= 0 || instr.Altitude > ac.Nav.Perf.Ceiling {
			return nav.ErrInvalidAltitude
		}
	case InstructionSpeed:
		if instr.Speed != 0 &&
			(instr.Speed < ac.Nav.Perf.Speed.Min || instr.Speed > ac.Nav.Perf.Speed.MaxTAS) {
			return nav.ErrInvalidSpeed
		}
	case InstructionDirectFix:
		if _, ok := s.Scenario.FixDB.Lookup(instr.Fix); ok {
			return nil
		}
		if idx := slices.IndexFunc(ac.Nav.AssignedWaypoints(),
			func(wp av.Waypoint) bool { return wp.Fix == instr.Fix }); idx == -1 {
			return nav.ErrInvalidFix
		}
	case InstructionClearedToLand:
		if !ac.Nav.Approach.Cleared {
			return nav.ErrNotClearedForApproach
		}
		if ac.Nav.Approach.InterceptState != nav.OnApproachCourse {
			return nav.ErrNotIntercepted
		}
	case InstructionClearedApproach, InstructionExpectApproach:
		if _, ok := s.Scenario.Approaches[instr.ApproachId]; !ok {
			return nav.ErrUnknownApproach
		}
	}
	return nil
}

// applyPendingInstructions drains the buffered instructions in issuance
// order at the start of a tick. Each successful application supersedes
// the previously active instruction on the same control axis.
func (s *Sim) applyPendingInstructions() {
	slices.SortFunc(s.pending, func(a, b Instruction) int { return int(a.Seq - b.Seq) })

	for _, instr := range s.pending {
		rec := &InstructionRecord{Instruction: instr, AppliedTick: s.Tick}
		s.history[instr.Callsign] = append(s.history[instr.Callsign], rec)

		readback, err := s.applyInstruction(instr)
		if err != nil {
			rec.Status = InstructionRejected
			rec.Reason = err.Error()
			s.eventStream.Post(Event{
				Type:     InstructionRejectedEvent,
				Callsign: instr.Callsign,
				Text:     instr.Kind.String() + ": " + err.Error(),
			})
			continue
		}

		rec.Status = InstructionActive
		rec.Readback = readback

		axis := instr.Kind.Axis()
		if prev := s.active[instr.Callsign][axis]; prev != nil {
			prev.Status = InstructionSuperseded
		}
		if s.active[instr.Callsign] == nil {
			s.active[instr.Callsign] = make(map[ControlAxis]*InstructionRecord)
		}
		s.active[instr.Callsign][axis] = rec

		s.eventStream.Post(Event{
			Type:     InstructionAppliedEvent,
			Callsign: instr.Callsign,
			Text:     readback,
		})
	}

	s.pending = s.pending[:0]
}

func (s *Sim) applyInstruction(instr Instruction) (string, error) {
	ac, ok := s.Aircraft[instr.Callsign]
	if !ok {
		return "", ErrUnknownAircraft
	}
	if !ac.Active() {
		if ac.Landed {
			return "", ErrAircraftLanded
		}
		return "", ErrAircraftFrozen
	}

	n := ac.Nav
	switch instr.Kind {
	case InstructionHeading:
		return n.AssignHeading(instr.Heading, instr.Turn, s.SimTime)
	case InstructionPresentHeading:
		return n.FlyPresentHeading(s.SimTime)
	case InstructionAltitude:
		return n.AssignAltitude(instr.Altitude, s.lg)
	case InstructionExpediteClimb:
		return n.ExpediteClimb(s.lg)
	case InstructionExpediteDescent:
		return n.ExpediteDescent(s.lg)
	case InstructionSpeed:
		return n.AssignSpeed(instr.Speed, s.lg)
	case InstructionDirectFix:
		return n.DirectFix(instr.Fix, s.SimTime)
	case InstructionDepartFixDirect:
		return n.DepartFixDirect(instr.Fix, instr.Fix2)
	case InstructionDepartFixHeading:
		return n.DepartFixHeading(instr.Fix, instr.Heading)
	case InstructionCrossFixAt:
		return n.CrossFixAt(instr.Fix, instr.AltitudeRestriction, instr.Speed)
	case InstructionHold:
		return n.HoldAtFix(instr.Hold, s.SimTime)
	case InstructionCancelHold:
		return n.CancelHold(s.SimTime)
	case InstructionExpectApproach:
		return n.ExpectApproach(instr.ApproachId, s.Scenario.Approaches[instr.ApproachId], s.lg)
	case InstructionClearedApproach:
		return n.ClearedApproach(instr.ApproachId, s.SimTime, s.lg)
	case InstructionClearedToLand:
		return n.ClearedToLand(s.lg)
	case InstructionCancelApproach:
		return n.CancelApproachClearance(s.lg)
	case InstructionResumeOwnNavigation:
		return n.ResumeOwnNavigation(s.SimTime)
	case InstructionGoAround:
		return n.GoAround(s.SimTime, s.lg)
	default:
		return "", ErrInvalidInstruction
	}
}

// InstructionHistory returns the retained instruction records for an
// aircraft, oldest first.
func (s *Sim) InstructionHistory(callsign string) []InstructionRecord {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	recs := make([]InstructionRecord, 0, len(s.history[callsign]))
	for _, r := range s.history[callsign] {
		recs = append(recs, *r)
	}
	return recs
}
