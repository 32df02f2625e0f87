package transport

import (
	"math"

	"loopgrid"
)

// StartRecording begins capturing events on the channel. While the
// transport is playing, the current position within the master cycle is
// remembered so the captured notes can later be placed correctly on the
// shared grid (an overdub). Unknown ids are a silent no-op.
func (s *Scheduler) StartRecording(id int) {
	ch, ok := s.channels[id]
	if !ok {
		return
	}
	ch.recording = true
	ch.recordStartMs = s.Now()
	ch.recordLoopOffsetMs = 0
	ch.recordBuffer = ch.recordBuffer[:0]
	if s.state == Playing && s.masterMs > 0 {
		ch.recordLoopOffsetMs = math.Mod(s.Now()-s.startMs, s.masterMs)
	}
}

// PushRecordEvent appends a live event to the channel's recording buffer,
// timestamped relative to the recording start. A no-op unless the channel
// is recording.
func (s *Scheduler) PushRecordEvent(id int, kind loopgrid.EventKind, pitch int, velocity float64) {
	ch, ok := s.channels[id]
	if !ok || !ch.recording {
		return
	}
	ch.recordBuffer = append(ch.recordBuffer, loopgrid.NoteEvent{
		Kind:        kind,
		Pitch:       pitch,
		TimestampMs: s.Now() - ch.recordStartMs,
		Velocity:    velocity,
	})
}

// IsRecording reports whether the channel is currently recording.
func (s *Scheduler) IsRecording(id int) bool {
	ch, ok := s.channels[id]
	return ok && ch.recording
}

// StopRecording ends the capture and returns the buffered events with their
// timestamps shifted by the recorded loop offset, so an overdub take is
// loop-relative. Returns nil when the channel was not recording.
func (s *Scheduler) StopRecording(id int) []loopgrid.NoteEvent {
	ch, ok := s.channels[id]
	if !ok || !ch.recording {
		return nil
	}
	events := make([]loopgrid.NoteEvent, len(ch.recordBuffer))
	copy(events, ch.recordBuffer)
	for i := range events {
		events[i].TimestampMs += ch.recordLoopOffsetMs
	}
	ch.recording = false
	ch.recordBuffer = ch.recordBuffer[:0]
	ch.recordLoopOffsetMs = 0
	return events
}

// CommitRecording runs the whole commit pipeline on the channel's
// recording: tempo detection with a 120 BPM fallback, downbeat estimation,
// loop construction and installation via SetSequence. When other channels
// are already looping, the new loop inherits the shared tempo and is built
// at least as long as the master cycle. Returns the committed sequence, or
// ok == false when the channel was not recording.
func (s *Scheduler) CommitRecording(id int) (seq *loopgrid.LoopSequence, ok bool) {
	ch, chOk := s.channels[id]
	if !chOk || !ch.recording {
		return nil, false
	}
	overdub := s.HasAnySequence()
	events := s.StopRecording(id)

	var onsets []float64
	for _, e := range events {
		if e.Kind == loopgrid.NoteOn {
			onsets = append(onsets, e.TimestampMs)
		}
	}
	bpm, confidence := float64(loopgrid.FallbackBPM), 0.0
	if est, estOk := loopgrid.DetectBPM(onsets); estOk {
		bpm, confidence = est.BPM, est.Confidence
	}
	if overdub {
		// the take must share the grid of the loops already running
		if global := s.GlobalBPM(); global > 0 {
			bpm = global
		}
	}
	phase, _ := loopgrid.DetectDownbeat(events, bpm)

	opts := loopgrid.BuildOptions{
		BPM:              bpm,
		Confidence:       confidence,
		DownbeatOffsetMs: phase.OffsetMs,
		Overdub:          overdub,
	}
	if overdub {
		opts.MinDurationMs = s.masterMs
	}
	built := loopgrid.BuildLoop(events, opts)
	s.SetSequence(id, built)
	return s.GetSequence(id), true
}
