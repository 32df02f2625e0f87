package loopgrid

import "sort"

// NotePair is a note-on matched with its note-off: one sounding note with a
// start, an end and a velocity. Pairs are derived from events when a loop is
// built or quantized and are never stored in a sequence directly.
type NotePair struct {
	Pitch    int
	Velocity float64
	StartMs  float64
	EndMs    float64
}

// PairNotes matches note-ons to note-offs and returns the resulting pairs in
// start order. Matching is last-opened-first per pitch. Any pitch still open
// when the events run out is force-closed at the timestamp of the last
// event, so a player lifting their finger after hitting stop never leaves a
// half-open note behind. Note-offs without a matching note-on are ignored.
// The input is not mutated.
func PairNotes(events []NoteEvent) []NotePair {
	sorted := CopyEvents(events)
	SortEvents(sorted)
	var pairs []NotePair
	open := make(map[int][]int) // pitch -> indices of pairs awaiting a note-off
	lastMs := 0.0
	for _, e := range sorted {
		if e.TimestampMs > lastMs {
			lastMs = e.TimestampMs
		}
		switch e.Kind {
		case NoteOn:
			open[e.Pitch] = append(open[e.Pitch], len(pairs))
			pairs = append(pairs, NotePair{Pitch: e.Pitch, Velocity: e.Velocity, StartMs: e.TimestampMs, EndMs: -1})
		case NoteOff:
			stack := open[e.Pitch]
			if len(stack) == 0 {
				continue
			}
			pairs[stack[len(stack)-1]].EndMs = e.TimestampMs
			open[e.Pitch] = stack[:len(stack)-1]
		}
	}
	for _, stack := range open {
		for _, i := range stack {
			pairs[i].EndMs = lastMs
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].StartMs < pairs[j].StartMs })
	return pairs
}

// MergeOverlaps merges same-pitch pairs that overlap in time: whenever a
// pair starts before the previous pair on that pitch has ended, the two
// collapse into one, keeping the later end and the higher velocity. The
// result is sorted by start. The input is not mutated.
func MergeOverlaps(pairs []NotePair) []NotePair {
	byPitch := make(map[int][]NotePair)
	pitches := make([]int, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := byPitch[p.Pitch]; !ok {
			pitches = append(pitches, p.Pitch)
		}
		byPitch[p.Pitch] = append(byPitch[p.Pitch], p)
	}
	sort.Ints(pitches)
	merged := make([]NotePair, 0, len(pairs))
	for _, pitch := range pitches {
		group := byPitch[pitch]
		sort.SliceStable(group, func(i, j int) bool { return group[i].StartMs < group[j].StartMs })
		cur := group[0]
		for _, p := range group[1:] {
			if p.StartMs < cur.EndMs {
				// overlap, possibly with an already-extended end
				if p.EndMs > cur.EndMs {
					cur.EndMs = p.EndMs
				}
				if p.Velocity > cur.Velocity {
					cur.Velocity = p.Velocity
				}
				continue
			}
			merged = append(merged, cur)
			cur = p
		}
		merged = append(merged, cur)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].StartMs < merged[j].StartMs })
	return merged
}

// EventsFromPairs reconstitutes an event list from pairs, sorted per
// SortEvents.
func EventsFromPairs(pairs []NotePair) []NoteEvent {
	events := make([]NoteEvent, 0, len(pairs)*2)
	for _, p := range pairs {
		events = append(events, NoteEvent{Kind: NoteOn, Pitch: p.Pitch, TimestampMs: p.StartMs, Velocity: p.Velocity})
		events = append(events, NoteEvent{Kind: NoteOff, Pitch: p.Pitch, TimestampMs: p.EndMs})
	}
	SortEvents(events)
	return events
}
