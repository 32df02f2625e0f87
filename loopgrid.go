// Package loopgrid implements the core of a looping note sequencer: a
// performance played on a grid controller is captured as note events,
// analyzed for tempo and downbeat, quantized into a repeating loop and played
// back in sync across multiple independent channels.
//
// The root package holds the pure data model and the offline analysis
// functions (tempo detection, downbeat detection, loop construction,
// quantization). The transport package holds the stateful scheduler that
// drives playback and recording against a shared clock. Sound synthesis is
// not part of this module; the scheduler dispatches note events to an
// AudioSink and treats it as opaque.
package loopgrid

// AudioSink is the sound engine the scheduler dispatches note events to.
// Implementations must tolerate high-frequency calls from the scheduling
// thread and must never block.
type AudioSink interface {
	NoteOn(channel, pitch int, velocity float64)
	NoteOff(channel, pitch int)
}

// NullAudioSink is a no-op AudioSink for running the transport without any
// sound engine attached.
type NullAudioSink struct{}

func (NullAudioSink) NoteOn(channel, pitch int, velocity float64) {}
func (NullAudioSink) NoteOff(channel, pitch int)                  {}
