/*
Package normalize reduces a raw deviation Set (one entry per DTW path pair,
with possibly many pairs per user frame) to exactly one pair per unique
user index, and removes the constant timing shift that arises whenever a
user chunk starting at 0s is matched against a reference passage that
begins partway into a full-song reference (spec §4.5).
*/
package normalize

import (
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/choirmind/vocalcore/internal/align"
	"github.com/choirmind/vocalcore/internal/calib"
	"github.com/choirmind/vocalcore/internal/deviation"
)

// Deduped is one pair per unique user index, in increasing user-index
// order, with timing offsets already baseline-corrected.
type Deduped struct {
	Path []align.Pair

	PitchCents []float64
	PitchValid []bool

	TimingOffsets []float64 // baseline-removed, seconds

	EnergyRatio []float64
	EnergyValid []bool

	Baseline float64 // seconds subtracted from every raw timing offset
}

// Dedup keeps, for each unique user index in s.Path, the pair with the
// smallest absolute pitch-cents deviation (an unvoiced deviation counts as
// +Inf for this comparison, so a voiced pair is always preferred over an
// unvoiced one at the same user index; ties keep the first-seen pair).
// It then subtracts the median of the surviving raw timing offsets from
// every surviving offset.
func Dedup(s deviation.Set, cal calib.Table) Deduped {
	bestForUser := make(map[int]int, len(s.Path))
	order := make([]int, 0, len(s.Path))

	for i, p := range s.Path {
		cur, seen := bestForUser[p.U]
		if !seen {
			bestForUser[p.U] = i
			order = append(order, p.U)
			continue
		}
		if absCents(s, i) < absCents(s, cur) {
			bestForUser[p.U] = i
		}
	}
	sort.Ints(order)

	n := len(order)
	d := Deduped{
		Path:          make([]align.Pair, n),
		PitchCents:    make([]float64, n),
		PitchValid:    make([]bool, n),
		TimingOffsets: make([]float64, n),
		EnergyRatio:   make([]float64, n),
		EnergyValid:   make([]bool, n),
	}

	raw := make([]float64, n)
	for k, u := range order {
		idx := bestForUser[u]
		d.Path[k] = s.Path[idx]
		d.PitchCents[k] = s.PitchCents[idx]
		d.PitchValid[k] = s.PitchValid[idx]
		d.EnergyRatio[k] = s.EnergyRatio[idx]
		d.EnergyValid[k] = s.EnergyValid[idx]
		raw[k] = s.TimingRaw[idx]
	}

	baseline := medianOf(raw)
	d.Baseline = baseline
	for k, v := range raw {
		d.TimingOffsets[k] = v - baseline
	}

	log.Printf("normalize: deduplicated %d path pairs to %d unique user frames, timing baseline=%.4fs",
		len(s.Path), n, baseline)
	return d
}

func absCents(s deviation.Set, i int) float64 {
	if !s.PitchValid[i] {
		return math.Inf(1)
	}
	if s.PitchCents[i] < 0 {
		return -s.PitchCents[i]
	}
	return s.PitchCents[i]
}

func medianOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
