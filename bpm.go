package loopgrid

import (
	"math"
	"sort"

	"github.com/viterin/vek"
)

// TempoEstimate is the result of DetectBPM. Confidence is the Rayleigh
// resultant length at the final interval: the fraction of onsets that sit
// tightly on a periodic grid at that tempo, in [0, 1].
type TempoEstimate struct {
	BPM        float64
	Confidence float64
	IntervalMs float64
}

const (
	// FallbackBPM is what callers use when DetectBPM has no estimate.
	FallbackBPM = 120

	minTempoOnsets = 3
	minTempoSpanMs = 500

	minIntervalMs  = 150  // 400 BPM
	maxIntervalMs  = 3000 // 20 BPM
	histogramBinMs = 8

	minBPM = 40
	maxBPM = 240

	topHistogramBins = 10
	bpmSnapTolerance = 1.5
)

// octaveFactors resolve the half/double-time ambiguity of sparse playing: a
// player hitting every other beat produces intervals at 2x the true beat.
var octaveFactors = [...]float64{0.25, 0.5, 1, 2, 3, 4}

// commonBPMs are tempos people actually dial in; a winning estimate within
// 1.5 BPM of one of these snaps to it.
var commonBPMs = [...]float64{
	60, 65, 70, 75, 80, 85, 90, 95, 100, 105, 110, 115, 120, 125, 128,
	130, 135, 140, 145, 150, 155, 160, 170, 174, 180, 190, 200, 220, 240,
}

// DetectBPM estimates the tempo of a performance from its note-on
// timestamps, in milliseconds. It needs at least 3 onsets spanning at least
// 500 ms; with less material it reports no estimate (ok == false), which is
// not an error. The input may be in any order and is not mutated.
//
// The estimate is built in two stages: a weighted inter-onset-interval
// histogram proposes candidate beat intervals, and a Rayleigh alignment test
// scores how well all onsets cluster on a periodic grid at each candidate.
func DetectBPM(onsets []float64) (e TempoEstimate, ok bool) {
	if len(onsets) < minTempoOnsets {
		return TempoEstimate{}, false
	}
	sorted := append([]float64(nil), onsets...)
	sort.Float64s(sorted)
	if sorted[len(sorted)-1]-sorted[0] < minTempoSpanMs {
		return TempoEstimate{}, false
	}
	hist := intervalHistogram(sorted)
	smoothHistogram(hist)
	var (
		bestInterval float64
		bestScore    float64
	)
	for _, base := range topBins(hist, topHistogramBins) {
		for _, f := range octaveFactors {
			interval := base * f
			bpm := 60000 / interval
			if bpm < minBPM || bpm > maxBPM {
				continue
			}
			score := rayleighResultant(sorted, interval) * bpmBonus(bpm)
			if score > bestScore {
				bestScore = score
				bestInterval = interval
			}
		}
	}
	if bestInterval == 0 {
		return TempoEstimate{}, false
	}
	bpm := snapBPM(60000 / bestInterval)
	interval := 60000 / bpm
	return TempoEstimate{
		BPM:        bpm,
		Confidence: rayleighResultant(sorted, interval),
		IntervalMs: interval,
	}, true
}

// intervalHistogram accumulates the intervals between each onset and its
// next 1 to 4 neighbors into 8 ms bins, weighting closer neighbor pairs
// more (weight 1/distance). Intervals outside 150..3000 ms are ignored.
func intervalHistogram(sorted []float64) []float64 {
	hist := make([]float64, maxIntervalMs/histogramBinMs+1)
	for i := 0; i < len(sorted); i++ {
		for k := 1; k <= 4 && i+k < len(sorted); k++ {
			d := sorted[i+k] - sorted[i]
			if d < minIntervalMs || d > maxIntervalMs {
				continue
			}
			hist[int(d/histogramBinMs+0.5)] += 1 / float64(k)
		}
	}
	return hist
}

// smoothHistogram applies a 3-point moving average in place, so jittered
// intervals that straddle a bin boundary still form one peak.
func smoothHistogram(hist []float64) {
	orig := append([]float64(nil), hist...)
	vek.Add_Inplace(hist[1:], orig[:len(orig)-1])
	vek.Add_Inplace(hist[:len(hist)-1], orig[1:])
	vek.MulNumber_Inplace(hist, 1.0/3.0)
}

// topBins returns the centers of the n highest-weight bins, as interval
// candidates in milliseconds.
func topBins(hist []float64, n int) []float64 {
	indices := make([]int, len(hist))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool { return hist[indices[i]] > hist[indices[j]] })
	var ret []float64
	for _, idx := range indices {
		if len(ret) >= n || hist[idx] <= 0 {
			break
		}
		ret = append(ret, float64(idx)*histogramBinMs)
	}
	return ret
}

// rayleighResultant maps every onset position modulo the interval onto a
// phase angle and sums the unit vectors; the resultant length in [0, 1]
// measures how tightly the onsets cluster on a grid at that interval.
func rayleighResultant(onsets []float64, intervalMs float64) float64 {
	var sumSin, sumCos float64
	for _, t := range onsets {
		s, c := math.Sincos(math.Mod(t, intervalMs) / intervalMs * 2 * math.Pi)
		sumSin += s
		sumCos += c
	}
	return math.Hypot(sumSin, sumCos) / float64(len(onsets))
}

// bpmBonus nudges the scoring towards tempos people actually play at, so a
// perfectly periodic performance resolves its octave ambiguity towards the
// musically likely reading. The pull towards 120 is smaller still.
func bpmBonus(bpm float64) float64 {
	bonus := 1.0
	if bpm >= 80 && bpm <= 160 {
		bonus *= 1.05
	}
	if d := math.Abs(bpm - 120); d < 20 {
		bonus *= 1 + 0.02*(1-d/20)
	}
	return bonus
}

func snapBPM(bpm float64) float64 {
	for _, c := range commonBPMs {
		if math.Abs(bpm-c) <= bpmSnapTolerance {
			return c
		}
	}
	return math.Round(bpm*10) / 10
}
