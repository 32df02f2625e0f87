package loopgrid

import "math"

// BuildOptions carries the analysis results and the looping context into
// BuildLoop. A zero BPM falls back to FallbackBPM. MinDurationMs is used
// when other channels are already looping: the new loop must be at least
// that long so it stays aligned with the shared grid. Overdub marks the
// events as already loop-relative; they are then not renormalized to start
// at zero.
type BuildOptions struct {
	BPM              float64
	Confidence       float64
	DownbeatOffsetMs float64
	MinDurationMs    float64
	Overdub          bool
}

const (
	beatsPerBar = 4

	// a note must sound for at least an eighth of a beat to be audible
	minNoteBeats = 1.0 / 8

	// rawBars this close above a power of two rounds down to it, so one
	// slightly late note does not double the loop
	barCountSlack = 1.02

	emptyLoopBars = 2
)

// BuildLoop turns a recorded performance into a finished LoopSequence: it
// picks a power-of-two bar count covering the content, fits every note
// inside the loop, merges same-pitch overlaps and reconstitutes a sorted
// event list. Empty input yields a valid empty loop of two bars. The input
// events are not mutated.
func BuildLoop(events []NoteEvent, opts BuildOptions) *LoopSequence {
	bpm := opts.BPM
	if bpm <= 0 {
		bpm = FallbackBPM
	}
	beatMs := 60000 / bpm
	barMs := beatMs * beatsPerBar

	evs := CopyEvents(events)
	SortEvents(evs)
	if !opts.Overdub {
		normalizeToFirstNoteOn(evs)
	}
	pairs := PairNotes(evs)

	bars := emptyLoopBars
	if len(pairs) > 0 {
		bars = barCount(lastNoteOnMs(pairs), beatMs, barMs)
	}
	// grow to cover the minimum duration, staying a power of two
	for opts.MinDurationMs > 0 && float64(bars)*barMs < opts.MinDurationMs-1e-6 {
		bars <<= 1
	}
	durationMs := float64(bars) * barMs

	pairs = fitPairs(pairs, beatMs, barMs, durationMs)
	pairs = MergeOverlaps(pairs)

	return &LoopSequence{
		Events:           EventsFromPairs(pairs),
		DurationMs:       durationMs,
		DurationBars:     bars,
		BPM:              bpm,
		Confidence:       opts.Confidence,
		DownbeatOffsetMs: opts.DownbeatOffsetMs,
		BeatIntervalMs:   beatMs,
		TimeSigNum:       4,
		TimeSigDen:       4,
	}
}

// normalizeToFirstNoteOn shifts all timestamps so the first note-on lands at
// zero. The first note of a fresh recording is taken as the downbeat.
func normalizeToFirstNoteOn(sorted []NoteEvent) {
	for _, e := range sorted {
		if e.Kind != NoteOn {
			continue
		}
		if e.TimestampMs != 0 {
			for i := range sorted {
				sorted[i].TimestampMs -= e.TimestampMs
			}
		}
		return
	}
}

func lastNoteOnMs(pairs []NotePair) float64 {
	last := 0.0
	for _, p := range pairs {
		if p.StartMs > last {
			last = p.StartMs
		}
	}
	return last
}

// barCount selects the loop length in bars: the smallest power of two
// covering the content (last note-on plus half a beat of slack), except
// that content within 2% above a power of two rounds down to it.
func barCount(lastOnMs, beatMs, barMs float64) int {
	rawBars := (lastOnMs + 0.5*beatMs) / barMs
	bars := 1
	for float64(bars) < rawBars {
		bars <<= 1
	}
	if bars > 1 && rawBars <= float64(bars/2)*barCountSlack {
		bars /= 2
	}
	return bars
}

// fitPairs makes every pair fit the loop: sustain is clamped to one bar, a
// note ringing past the loop boundary is truncated to end exactly there,
// and anything shorter than an eighth of a beat is lengthened to that
// minimum (still capped at the boundary). A start at or past the boundary,
// possible only when the bar count rounded down, wraps around the loop.
func fitPairs(pairs []NotePair, beatMs, barMs, durationMs float64) []NotePair {
	minLen := beatMs * minNoteBeats
	fitted := make([]NotePair, 0, len(pairs))
	for _, p := range pairs {
		if p.StartMs >= durationMs {
			length := p.EndMs - p.StartMs
			p.StartMs = math.Mod(p.StartMs, durationMs)
			p.EndMs = p.StartMs + length
		}
		if p.EndMs-p.StartMs > barMs {
			p.EndMs = p.StartMs + barMs
		}
		if p.EndMs-p.StartMs < minLen {
			p.EndMs = p.StartMs + minLen
		}
		if p.EndMs > durationMs {
			p.EndMs = durationMs
		}
		fitted = append(fitted, p)
	}
	return fitted
}
