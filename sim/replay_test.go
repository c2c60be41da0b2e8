// sim/replay_test.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"bytes"
	"io"
	"testing"
)

func recordReplay(t *testing.T, ticks int) (*bytes.Buffer, *Sim) {
	t.Helper()
	s := mustSim(t, crossingScenario)

	var buf bytes.Buffer
	rec, err := NewReplayRecorder(&buf)
	if err != nil {
		t.Fatalf("NewReplayRecorder: %v", err)
	}
	s.SetRecorder(rec)

	for i := 0; i < ticks; i++ {
		s.Step()
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return &buf, s
}

func TestReplayRoundTrip(t *testing.T) {
	const ticks = 50
	buf, s := recordReplay(t, ticks)

	r, err := NewReplayReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewReplayReader: %v", err)
	}
	defer r.Close()

	for i := int64(0); i < ticks; i++ {
		frame, err := r.FrameAt(i)
		if err != nil {
			t.Fatalf("FrameAt(%d): %v", i, err)
		}
		if frame.Tick != i+1 {
			t.Errorf("frame %d has tick %d", i, frame.Tick)
		}
		if len(frame.Aircraft) != len(s.Aircraft) {
			t.Errorf("frame %d has %d aircraft, expected %d", i, len(frame.Aircraft), len(s.Aircraft))
		}
	}

	// The last frame matches the simulation's final state.
	last, err := r.FrameAt(ticks - 1)
	if err != nil {
		t.Fatalf("FrameAt(%d): %v", ticks-1, err)
	}
	for _, af := range last.Aircraft {
		fs := s.Aircraft[af.Callsign].Nav.FlightState
		if af.Position != fs.Position || af.Altitude != fs.Altitude || af.Heading != fs.Heading {
			t.Errorf("%s: frame state %+v does not match sim state %s", af.Callsign, af, fs.Summary())
		}
	}

	if _, err := r.FrameAt(ticks); err != io.EOF {
		t.Errorf("read past end: %v, expected io.EOF", err)
	}
}

// Backward seeks restart the decoder; frames must come back identical.
func TestReplayBackwardSeek(t *testing.T) {
	const ticks = 30
	buf, _ := recordReplay(t, ticks)

	r, err := NewReplayReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewReplayReader: %v", err)
	}
	defer r.Close()

	forward := make([]ReplayFrame, ticks)
	for i := int64(0); i < ticks; i++ {
		if forward[i], err = r.FrameAt(i); err != nil {
			t.Fatalf("FrameAt(%d): %v", i, err)
		}
	}

	for _, i := range []int64{20, 5, 29, 0, 12} {
		frame, err := r.FrameAt(i)
		if err != nil {
			t.Fatalf("FrameAt(%d) after seek: %v", i, err)
		}
		if frame.Tick != forward[i].Tick || len(frame.Aircraft) != len(forward[i].Aircraft) {
			t.Errorf("frame %d differs after seek", i)
		}
		for j, af := range frame.Aircraft {
			if af != forward[i].Aircraft[j] {
				t.Errorf("frame %d aircraft %d differs after seek", i, j)
			}
		}
	}
}
