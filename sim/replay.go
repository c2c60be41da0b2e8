// sim/replay.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"bytes"
	"fmt"
	"io"

	"tracon/math"
	"tracon/util"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// ReplayFrame is the per-tick record written to a replay stream: enough
// physical and conflict state to reconstruct the radar picture at that
// tick, without the full navigation state behind it.
type ReplayFrame struct {
	Tick     int64
	Aircraft []AircraftFrame
	Active   []ConflictPair
}

// AircraftFrame is one aircraft's physical state within a ReplayFrame.
type AircraftFrame struct {
	Callsign string
	Position math.Point2NM
	Altitude float32
	Heading  float32
	IAS      float32
	GS       float32
	Landed   bool
	Frozen   bool
	Alert    bool
}

func (s *Sim) makeFrame() ReplayFrame {
	frame := ReplayFrame{Tick: s.Tick}
	for _, callsign := range util.SortedMapKeys(s.Aircraft) {
		ac := s.Aircraft[callsign]
		fs := ac.Nav.FlightState
		frame.Aircraft = append(frame.Aircraft, AircraftFrame{
			Callsign: callsign,
			Position: fs.Position,
			Altitude: fs.Altitude,
			Heading:  fs.Heading,
			IAS:      fs.IAS,
			GS:       fs.GS,
			Landed:   ac.Landed,
			Frozen:   ac.Frozen,
			Alert:    ac.ConflictAlert,
		})
	}
	for _, c := range s.detector.Active() {
		frame.Active = append(frame.Active, c.Pair)
	}
	return frame
}

// ReplayRecorder streams frames to w as msgpack records inside a single
// zstd stream, one frame per tick.
type ReplayRecorder struct {
	zw  *zstd.Encoder
	enc *msgpack.Encoder
}

func NewReplayRecorder(w io.Writer) (*ReplayRecorder, error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	return &ReplayRecorder{zw: zw, enc: msgpack.NewEncoder(zw)}, nil
}

func (r *ReplayRecorder) WriteFrame(frame ReplayFrame) error {
	return r.enc.Encode(frame)
}

// Close flushes the compressed stream; the recorder is unusable
// afterwards.
func (r *ReplayRecorder) Close() error {
	return r.zw.Close()
}

// replayCacheSize bounds the number of decoded frames kept for random
// access; sequential playback only ever needs one.
const replayCacheSize = 128

// ReplayReader provides random access to a recorded stream. Frames
// decode sequentially; seeking backwards restarts the decoder from the
// beginning, so a small LRU of decoded frames covers the common
// scrub-back-and-forth access pattern.
type ReplayReader struct {
	raw   []byte
	dec   *msgpack.Decoder
	zr    *zstd.Decoder
	next  int64 // tick the decoder will produce next
	cache *lru.Cache[int64, ReplayFrame]
}

func NewReplayReader(r io.Reader) (*ReplayReader, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay stream: %w", err)
	}
	rr := &ReplayReader{raw: raw}
	rr.cache, err = lru.New[int64, ReplayFrame](replayCacheSize)
	if err != nil {
		return nil, err
	}
	if err := rr.rewind(); err != nil {
		return nil, err
	}
	return rr, nil
}

func (r *ReplayReader) rewind() error {
	if r.zr != nil {
		r.zr.Close()
	}
	zr, err := zstd.NewReader(bytes.NewReader(r.raw))
	if err != nil {
		return fmt.Errorf("failed to create zstd reader: %w", err)
	}
	r.zr = zr
	r.dec = msgpack.NewDecoder(zr)
	r.next = 0
	return nil
}

// FrameAt returns the frame for the given tick, counting from the first
// recorded tick. It returns io.EOF past the end of the stream.
func (r *ReplayReader) FrameAt(idx int64) (ReplayFrame, error) {
	if frame, ok := r.cache.Get(idx); ok {
		return frame, nil
	}
	if idx < r.next {
		if err := r.rewind(); err != nil {
			return ReplayFrame{}, err
		}
	}
	for {
		var frame ReplayFrame
		if err := r.dec.Decode(&frame); err != nil {
			if err == io.EOF {
				return ReplayFrame{}, io.EOF
			}
			return ReplayFrame{}, fmt.Errorf("failed to decode replay frame: %w", err)
		}
		i := r.next
		r.next++
		r.cache.Add(i, frame)
		if i == idx {
			return frame, nil
		}
	}
}

func (r *ReplayReader) Close() {
	if r.zr != nil {
		r.zr.Close()
	}
}
