/*
Package align runs constrained FastDTW-style warping between the user's and
reference's weighted 3-D feature sequences (spec §4.3): a multi-resolution
coarsen-then-refine search restricted to a band of width `radius` around a
projection of a coarser alignment, giving near-linear time and bounded
memory instead of the O(n*m) of plain DTW.
*/
package align

import (
	"log"
	"math"

	"github.com/choirmind/vocalcore/internal/calib"
	"github.com/choirmind/vocalcore/internal/dtwfeat"
	"github.com/choirmind/vocalcore/internal/feature"
)

// Pair is one step of a warping path: an index into the user sequence and
// an index into the reference sequence.
type Pair struct {
	U, R int
}

// Result is the aligner's output: the path and the raw DTW cost.
type Result struct {
	Path     []Pair
	Distance float64
}

/*
TruncateReference implements the pre-step of spec §4.3: if the reference
is longer than userDurationS*cal.RefTruncFactor + cal.RefTruncSlackS,
the reference arrays are truncated at that cutoff before feature building.
Returns the (possibly truncated) reference and the pitch-frame index at
which truncation occurred (0 if untouched), kept for diagnostic logging.
*/
func TruncateReference(ref feature.Feature, userDurationS float64, cal calib.Table) (feature.Feature, int) {
	cutoff := userDurationS*cal.RefTruncFactor + cal.RefTruncSlackS
	if ref.DurationS <= cutoff {
		return ref, 0
	}

	cutIdx := len(ref.PitchTimes)
	for i, t := range ref.PitchTimes {
		if t > cutoff {
			cutIdx = i
			break
		}
	}
	rmsCutIdx := len(ref.RMSTimes)
	for i, t := range ref.RMSTimes {
		if t > cutoff {
			rmsCutIdx = i
			break
		}
	}

	onsets := make([]float64, 0, len(ref.OnsetTimes))
	for _, t := range ref.OnsetTimes {
		if t <= cutoff {
			onsets = append(onsets, t)
		}
	}

	truncated := feature.Feature{
		PitchHz:    append([]float64(nil), ref.PitchHz[:cutIdx]...),
		Voiced:     append([]bool(nil), ref.Voiced[:cutIdx]...),
		PitchTimes: append([]float64(nil), ref.PitchTimes[:cutIdx]...),
		OnsetTimes: onsets,
		RMSValues:  append([]float64(nil), ref.RMSValues[:rmsCutIdx]...),
		RMSTimes:   append([]float64(nil), ref.RMSTimes[:rmsCutIdx]...),
		DurationS:  cutoff,
	}
	log.Printf("align: reference truncated at %.2fs (cut_idx=%d) for user_duration=%.2fs",
		cutoff, cutIdx, userDurationS)
	return truncated, cutIdx
}

// Run aligns x (user) against y (ref) with the given search radius and
// returns the warping path plus raw cost. An empty x or y yields an empty
// path and zero distance, never an error.
func Run(x, y []dtwfeat.Vector, radius int) Result {
	if len(x) == 0 || len(y) == 0 {
		return Result{}
	}
	path, dist := fastDTW(x, y, radius)
	log.Printf("align: %d path pairs, dtw distance=%.4f", len(path), dist)
	return Result{Path: path, Distance: dist}
}

func fastDTW(x, y []dtwfeat.Vector, radius int) ([]Pair, float64) {
	minTimeSize := radius + 2
	if len(x) <= minTimeSize || len(y) <= minTimeSize {
		return dtwFull(x, y, nil)
	}

	xShrunk := shrinkByHalf(x)
	yShrunk := shrinkByHalf(y)
	lowPath, _ := fastDTW(xShrunk, yShrunk, radius)

	window := expandWindow(lowPath, len(x), len(y), radius)
	return dtwFull(x, y, window)
}

// shrinkByHalf averages consecutive pairs of frames, dropping a trailing
// unpaired frame (matching the reference FastDTW implementation's
// reduce-by-half behavior).
func shrinkByHalf(v []dtwfeat.Vector) []dtwfeat.Vector {
	n := len(v) - len(v)%2
	out := make([]dtwfeat.Vector, 0, n/2)
	for i := 0; i < n; i += 2 {
		out = append(out, dtwfeat.Vector{
			(v[i][0] + v[i+1][0]) / 2,
			(v[i][1] + v[i+1][1]) / 2,
			(v[i][2] + v[i+1][2]) / 2,
		})
	}
	return out
}

// expandWindow projects a coarse-resolution path back to the fine
// resolution and dilates it by radius, returning the set of allowed
// (i,j) cells as a map keyed by row.
func expandWindow(lowPath []Pair, lenX, lenY, radius int) map[int]map[int]bool {
	dilated := make(map[int]map[int]bool)
	add := func(i, j int) {
		if i < 0 || j < 0 {
			return
		}
		if dilated[i] == nil {
			dilated[i] = make(map[int]bool)
		}
		dilated[i][j] = true
	}
	for _, p := range lowPath {
		for a := -radius; a <= radius; a++ {
			for b := -radius; b <= radius; b++ {
				add(p.U+a, p.R+b)
			}
		}
	}

	fine := make(map[int]map[int]bool)
	addFine := func(i, j int) {
		if i < 0 || j < 0 || i >= lenX || j >= lenY {
			return
		}
		if fine[i] == nil {
			fine[i] = make(map[int]bool)
		}
		fine[i][j] = true
	}
	for i, cols := range dilated {
		for j := range cols {
			addFine(2*i, 2*j)
			addFine(2*i, 2*j+1)
			addFine(2*i+1, 2*j)
			addFine(2*i+1, 2*j+1)
		}
	}
	return fine
}

type cell struct{ I, J int }

const infCost = math.MaxFloat64 / 4

// dtwFull runs exact DTW over x,y restricted to window (nil means
// unrestricted) and returns the optimal path and its cost.
func dtwFull(x, y []dtwfeat.Vector, window map[int]map[int]bool) ([]Pair, float64) {
	n, m := len(x), len(y)
	inWindow := func(i, j int) bool {
		if window == nil {
			return true
		}
		cols, ok := window[i]
		return ok && cols[j]
	}

	cost := make(map[cell]float64, n+m)
	prev := make(map[cell]cell, n+m)

	getCost := func(i, j int) float64 {
		if i == -1 && j == -1 {
			return 0
		}
		if i < 0 || j < 0 {
			return infCost
		}
		c, ok := cost[cell{i, j}]
		if !ok {
			return infCost
		}
		return c
	}

	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if !inWindow(i, j) {
				continue
			}
			d := euclid(x[i], y[j])
			cDiag := getCost(i-1, j-1)
			cUp := getCost(i-1, j)
			cLeft := getCost(i, j-1)

			best := cDiag
			from := cell{i - 1, j - 1}
			if cUp < best {
				best = cUp
				from = cell{i - 1, j}
			}
			if cLeft < best {
				best = cLeft
				from = cell{i, j - 1}
			}

			cost[cell{i, j}] = d + best
			prev[cell{i, j}] = from
		}
	}

	end := cell{n - 1, m - 1}
	if _, ok := cost[end]; !ok {
		// Window construction failed to cover the terminal cell (should not
		// happen for a correctly dilated window); fall back to unrestricted
		// DTW rather than return a truncated path.
		if window != nil {
			return dtwFull(x, y, nil)
		}
		return nil, 0
	}

	var path []Pair
	c := end
	for {
		path = append(path, Pair{c.I, c.J})
		if c.I == 0 && c.J == 0 {
			break
		}
		c = prev[c]
	}
	// reverse into ascending order
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, cost[end]
}

func euclid(a, b dtwfeat.Vector) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
