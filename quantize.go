package loopgrid

import (
	"fmt"
	"math"
	"sort"
)

// Grid is the quantization grid, as a subdivision of the beat.
type Grid int

const (
	GridQuarter Grid = iota
	GridEighth
	GridSixteenth
	GridThirtySecond
)

// Divisor returns how many grid steps fit in one beat.
func (g Grid) Divisor() float64 {
	switch g {
	case GridEighth:
		return 2
	case GridSixteenth:
		return 4
	case GridThirtySecond:
		return 8
	default:
		return 1
	}
}

func (g Grid) String() string {
	switch g {
	case GridEighth:
		return "1/8"
	case GridSixteenth:
		return "1/16"
	case GridThirtySecond:
		return "1/32"
	default:
		return "1/4"
	}
}

// ParseGrid parses a grid name as printed by String.
func ParseGrid(s string) (Grid, error) {
	for _, g := range []Grid{GridQuarter, GridEighth, GridSixteenth, GridThirtySecond} {
		if g.String() == s {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown quantization grid %q", s)
}

// DefaultQuantizeStrength is how far towards the grid notes move when the
// caller does not choose a strength.
const DefaultQuantizeStrength = 0.75

const (
	// starts closer to the grid than this fraction of a step stay put
	quantizeDeadZone = 0.2
	// no start ever moves further than this fraction of a step
	quantizeMaxShift = 0.4
	// durations never shrink below this fraction of a step
	quantizeMinLength = 0.25
	// pre-quantization gaps up to this fraction of a step count as legato
	legatoGapSteps = 0.5
)

// Quantize re-aligns a sequence's notes to a grid while keeping the human
// feel: hard hits move more than ghost notes, nearly-on-grid notes stay
// put, shifts are clamped, durations are preserved exactly and legato
// transitions stay seamless. The result is a replacement sequence with the
// same duration, tempo and bar count; the input is not mutated.
func Quantize(seq *LoopSequence, grid Grid, strength float64) *LoopSequence {
	strength = math.Max(0, math.Min(1, strength))
	gridMs := seq.BeatIntervalMs / grid.Divisor()
	pairs := PairNotes(seq.Events)
	quantized := make([]NotePair, len(pairs))
	for i, p := range pairs {
		effective := strength * (0.6 + 0.4*p.Velocity)
		snapped := math.Round(p.StartMs/gridMs) * gridMs
		offset := snapped - p.StartMs
		start := p.StartMs
		if math.Abs(offset) >= quantizeDeadZone*gridMs {
			shift := offset * effective
			shift = math.Max(-quantizeMaxShift*gridMs, math.Min(quantizeMaxShift*gridMs, shift))
			start += shift
		}
		length := math.Max(p.EndMs-p.StartMs, quantizeMinLength*gridMs)
		quantized[i] = NotePair{Pitch: p.Pitch, Velocity: p.Velocity, StartMs: start, EndMs: start + length}
	}
	preserveLegato(pairs, quantized, gridMs)
	out := seq.Copy()
	out.Events = EventsFromPairs(MergeOverlaps(quantized))
	return &out
}

// preserveLegato re-joins consecutive same-pitch notes that were played
// seamlessly: if the pre-quantization gap was legato-small, the earlier
// note's new end stretches to exactly the later note's new start, provided
// the stretch stays within one grid step and the pair ordering survived the
// shifts.
func preserveLegato(orig, quantized []NotePair, gridMs float64) {
	byPitch := make(map[int][]int)
	for i, p := range orig {
		byPitch[p.Pitch] = append(byPitch[p.Pitch], i)
	}
	for _, indices := range byPitch {
		sort.SliceStable(indices, func(a, b int) bool { return orig[indices[a]].StartMs < orig[indices[b]].StartMs })
		for k := 0; k+1 < len(indices); k++ {
			a, b := indices[k], indices[k+1]
			gap := orig[b].StartMs - orig[a].EndMs
			if gap > legatoGapSteps*gridMs {
				continue
			}
			newEnd := quantized[b].StartMs
			if newEnd <= quantized[a].StartMs {
				continue // ordering flipped, leave it to the overlap merge
			}
			if math.Abs(newEnd-quantized[a].EndMs) > gridMs {
				continue
			}
			quantized[a].EndMs = newEnd
		}
	}
}
