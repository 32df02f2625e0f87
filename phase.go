package loopgrid

import "math"

// PhaseEstimate locates the downbeat within a beat: OffsetMs is in
// [0, beatMs) and Confidence is the resultant vector length normalized by
// the summed weights, in [0, 1].
type PhaseEstimate struct {
	OffsetMs   float64
	Confidence float64
}

// DetectDownbeat estimates where within the beat the player's accents fall,
// as a velocity-weighted circular mean of the note-on phases. Hard hits
// count more than ghost notes (weight 0.5 + 0.5*velocity).
//
// The offset is metadata for display and grid alignment; recorded
// timestamps are never shifted by it. A fresh, non-overdub recording takes
// its first note as the downbeat.
func DetectDownbeat(events []NoteEvent, bpm float64) (e PhaseEstimate, ok bool) {
	if bpm <= 0 {
		return PhaseEstimate{}, false
	}
	beatMs := 60000 / bpm
	var sumSin, sumCos, sumWeight float64
	for _, ev := range events {
		if ev.Kind != NoteOn {
			continue
		}
		w := 0.5 + 0.5*ev.Velocity
		s, c := math.Sincos(math.Mod(ev.TimestampMs, beatMs) / beatMs * 2 * math.Pi)
		sumSin += w * s
		sumCos += w * c
		sumWeight += w
	}
	if sumWeight == 0 {
		return PhaseEstimate{}, false
	}
	mean := math.Atan2(sumSin, sumCos)
	if mean < 0 {
		mean += 2 * math.Pi
	}
	return PhaseEstimate{
		OffsetMs:   mean / (2 * math.Pi) * beatMs,
		Confidence: math.Hypot(sumSin, sumCos) / sumWeight,
	}, true
}
