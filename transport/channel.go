package transport

import (
	"sort"

	"loopgrid"
)

// Delegate receives per-channel playback callbacks, typically implemented by
// the grid UI to highlight pads and draw the playhead. Callbacks are invoked
// synchronously from Tick and must not block and must not call back into the
// scheduler.
type Delegate interface {
	OnNoteOn(pitch int, velocity float64)
	OnNoteOff(pitch int)
	OnTick(loopTimeMs, loopDurationMs float64)
	OnLoopWrap()
}

// NullDelegate is the standing no-op Delegate. It is substituted when a
// channel's UI detaches, so playback continues silently until a new
// delegate registers.
type NullDelegate struct{}

func (NullDelegate) OnNoteOn(pitch int, velocity float64)      {}
func (NullDelegate) OnNoteOff(pitch int)                       {}
func (NullDelegate) OnTick(loopTimeMs, loopDurationMs float64) {}
func (NullDelegate) OnLoopWrap()                               {}

// channel is the per-channel playback and recording state, owned
// exclusively by the Scheduler.
type channel struct {
	id       int
	delegate Delegate
	sequence *loopgrid.LoopSequence

	active     map[int]struct{} // pitches currently sounding
	eventIndex int              // playback cursor into sequence.Events
	lastLoopMs float64

	recording          bool
	recordStartMs      float64
	recordLoopOffsetMs float64
	recordBuffer       []loopgrid.NoteEvent
}

func (c *channel) activePitches() []int {
	pitches := make([]int, 0, len(c.active))
	for p := range c.active {
		pitches = append(pitches, p)
	}
	sort.Ints(pitches)
	return pitches
}
