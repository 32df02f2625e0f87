package loopgrid

// LoopSequence is a committed, repeating loop on one channel. It is a value:
// committing, quantizing or overdubbing produces a whole new sequence, never
// an in-place edit visible to readers.
//
// Invariants: Events are sorted per SortEvents, DurationBars is a power of
// two >= 1, and DurationMs == DurationBars * BeatIntervalMs * TimeSigNum.
// The time signature is fixed at 4/4.
type LoopSequence struct {
	Events           []NoteEvent `yaml:",flow"`
	DurationMs       float64
	DurationBars     int
	BPM              float64
	Confidence       float64
	DownbeatOffsetMs float64
	BeatIntervalMs   float64
	TimeSigNum       int
	TimeSigDen       int
}

// Copy makes a deep copy of a LoopSequence.
func (s *LoopSequence) Copy() LoopSequence {
	ret := *s
	ret.Events = CopyEvents(s.Events)
	return ret
}

// BarIntervalMs returns the length of one bar in milliseconds.
func (s *LoopSequence) BarIntervalMs() float64 {
	return s.BeatIntervalMs * float64(s.TimeSigNum)
}
