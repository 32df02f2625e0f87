package loopgrid_test

import (
	"math"
	"testing"

	"loopgrid"
)

func noteOns(velocity float64, timestamps ...float64) []loopgrid.NoteEvent {
	var events []loopgrid.NoteEvent
	for _, ts := range timestamps {
		events = append(events, loopgrid.NoteEvent{Kind: loopgrid.NoteOn, TimestampMs: ts, Velocity: velocity})
	}
	return events
}

func TestDetectDownbeatOnTheBeat(t *testing.T) {
	est, ok := loopgrid.DetectDownbeat(noteOns(1, 0, 500, 1000, 1500), 120)
	if !ok {
		t.Fatal("expected an estimate")
	}
	if math.Abs(est.OffsetMs) > 1e-9 && math.Abs(est.OffsetMs-500) > 1e-9 {
		t.Errorf("OffsetMs = %v, want 0", est.OffsetMs)
	}
	if est.Confidence < 0.99 {
		t.Errorf("Confidence = %v, want ~1", est.Confidence)
	}
}

func TestDetectDownbeatShifted(t *testing.T) {
	est, ok := loopgrid.DetectDownbeat(noteOns(0.8, 100, 600, 1100, 1600), 120)
	if !ok {
		t.Fatal("expected an estimate")
	}
	if math.Abs(est.OffsetMs-100) > 1e-6 {
		t.Errorf("OffsetMs = %v, want 100", est.OffsetMs)
	}
}

func TestDetectDownbeatVelocityWeighting(t *testing.T) {
	// a full-velocity hit on the beat and a ghost note an eighth later:
	// the mean must lean towards the accent
	events := []loopgrid.NoteEvent{
		{Kind: loopgrid.NoteOn, TimestampMs: 0, Velocity: 1},
		{Kind: loopgrid.NoteOn, TimestampMs: 125, Velocity: 0},
	}
	est, ok := loopgrid.DetectDownbeat(events, 120)
	if !ok {
		t.Fatal("expected an estimate")
	}
	// weights 1.0 and 0.5: atan2(0.5, 1.0)/2pi * 500 ms
	want := math.Atan2(0.5, 1.0) / (2 * math.Pi) * 500
	if math.Abs(est.OffsetMs-want) > 1e-6 {
		t.Errorf("OffsetMs = %v, want %v", est.OffsetMs, want)
	}
	if est.OffsetMs >= 62.5 {
		t.Errorf("OffsetMs = %v, want less than the unweighted midpoint 62.5", est.OffsetMs)
	}
}

func TestDetectDownbeatNoEstimate(t *testing.T) {
	if _, ok := loopgrid.DetectDownbeat(noteOns(1, 0, 500), 0); ok {
		t.Error("expected no estimate for zero BPM")
	}
	offs := []loopgrid.NoteEvent{{Kind: loopgrid.NoteOff, TimestampMs: 100}}
	if _, ok := loopgrid.DetectDownbeat(offs, 120); ok {
		t.Error("expected no estimate without note-ons")
	}
}
