package loopgrid

import "sort"

// EventKind tells whether a NoteEvent starts or ends a note. NoteOff sorts
// before NoteOn so a retriggered pitch always releases before it sounds
// again.
type EventKind int

const (
	NoteOff EventKind = iota
	NoteOn
)

func (k EventKind) String() string {
	if k == NoteOn {
		return "on"
	}
	return "off"
}

// NoteEvent is a single note-on or note-off, either captured live from the
// grid or synthesized when a loop is built. TimestampMs is relative to the
// start of the recording or, inside a LoopSequence, to the start of the loop.
// Velocity is in [0, 1] and meaningful only for note-ons.
type NoteEvent struct {
	Kind        EventKind
	Pitch       int
	TimestampMs float64
	Velocity    float64 `yaml:",omitempty"`
}

// SortEvents sorts events in place, ascending by timestamp. The sort is
// stable, so simultaneous events keep their capture order except that a
// note-off always precedes a note-on at the exact same timestamp.
func SortEvents(events []NoteEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].TimestampMs != events[j].TimestampMs {
			return events[i].TimestampMs < events[j].TimestampMs
		}
		return events[i].Kind < events[j].Kind
	})
}

// CopyEvents returns an independent copy of the event list.
func CopyEvents(events []NoteEvent) []NoteEvent {
	if events == nil {
		return nil
	}
	ret := make([]NoteEvent, len(events))
	copy(ret, events)
	return ret
}
