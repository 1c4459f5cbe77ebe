/*
Package problem scans a deduplicated alignment for the spans a singer most
needs to revisit: a sliding window over user time scored for badness, with
the worst non-overlapping windows surfaced for dual (reference + user)
playback (spec §4.8).
*/
package problem

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/choirmind/vocalcore/internal/calib"
	"github.com/choirmind/vocalcore/internal/feature"
	"github.com/choirmind/vocalcore/internal/normalize"
)

// Area is one flagged span of the performance, in the shape exposed to callers.
type Area struct {
	StartS float64
	EndS   float64

	Issues []string // subset of "pitch", "timing", "dynamics"

	AvgPitchDevCents  float64
	AvgTimingOffsetMs float64
	AvgEnergyRatio    float64

	HasRef    bool
	RefStartS float64
	RefEndS   float64
}

type window struct {
	startS, endS float64
	badness      float64
	hasPitch     bool

	issues            []string
	avgPitchDevCents  float64
	avgTimingOffsetMs float64
	avgEnergyRatio    float64

	hasRef    bool
	refStartS float64
	refEndS   float64
}

// windowEndEpsilon absorbs float64 accumulation error in the startS +=
// cal.ProblemStepS loop, the same slack the original service's
// t + window_s <= duration + 0.01 guard uses.
const windowEndEpsilon = 0.01

/*
Find slides a cal.ProblemWindowS-wide window across the user timeline in
cal.ProblemStepS steps. Each window's issues are the dimensions whose mean
deviation crosses cal's issue thresholds; its badness is the weighted sum
of mean cents over cal.PitchZeroCents, mean timing offset over
cal.TimingZeroS, and the mean energy ratio's distance from 1, using cal's
overall-score weights. Up to cal.ProblemMaxSelected non-overlapping windows
are then selected greedily in descending badness order. A window that
would extend past the end of the recording, that has no voiced pitch
samples at all, or that has no issue, is never considered.
*/
func Find(d normalize.Deduped, user, ref feature.Feature, cal calib.Table) []Area {
	if len(d.Path) == 0 || user.DurationS <= 0 {
		return nil
	}

	var windows []window
	for startS := 0.0; startS+cal.ProblemWindowS <= user.DurationS+windowEndEpsilon; startS += cal.ProblemStepS {
		endS := startS + cal.ProblemWindowS
		w := scoreWindow(d, user, ref, cal, startS, endS)
		if w.hasPitch && len(w.issues) > 0 {
			windows = append(windows, w)
		}
	}
	if len(windows) == 0 {
		return nil
	}

	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].badness > windows[j].badness
	})

	var selected []window
	for _, w := range windows {
		if len(selected) >= cal.ProblemMaxSelected {
			break
		}
		overlaps := false
		for _, s := range selected {
			if w.startS < s.endS && s.startS < w.endS {
				overlaps = true
				break
			}
		}
		if !overlaps {
			selected = append(selected, w)
		}
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].startS < selected[j].startS })

	areas := make([]Area, 0, len(selected))
	for _, w := range selected {
		a := Area{
			StartS:            w.startS,
			EndS:              w.endS,
			Issues:            w.issues,
			AvgPitchDevCents:  w.avgPitchDevCents,
			AvgTimingOffsetMs: w.avgTimingOffsetMs,
			AvgEnergyRatio:    w.avgEnergyRatio,
			HasRef:            w.hasRef,
			RefStartS:         w.refStartS,
			RefEndS:           w.refEndS,
		}
		areas = append(areas, a)
	}
	return areas
}

func scoreWindow(d normalize.Deduped, user, ref feature.Feature, cal calib.Table, startS, endS float64) window {
	w := window{startS: startS, endS: endS, avgEnergyRatio: 1.0}

	var pitchDevs, timingDevs, dynRatios []float64
	var refTimes []float64
	for i, p := range d.Path {
		ut := user.PitchTimes[p.U]
		if ut < startS || ut >= endS {
			continue
		}
		if d.PitchValid[i] {
			pitchDevs = append(pitchDevs, math.Abs(d.PitchCents[i]))
		}
		timingDevs = append(timingDevs, math.Abs(d.TimingOffsets[i]))
		if d.EnergyValid[i] {
			dynRatios = append(dynRatios, d.EnergyRatio[i])
		}
		if p.R < len(ref.PitchTimes) {
			refTimes = append(refTimes, ref.PitchTimes[p.R])
		}
	}

	var meanCents, meanDt float64
	meanRatio := 1.0
	if len(pitchDevs) > 0 {
		w.hasPitch = true
		meanCents = stat.Mean(pitchDevs, nil)
		w.avgPitchDevCents = meanCents
	}
	if len(timingDevs) > 0 {
		meanDt = stat.Mean(timingDevs, nil)
		w.avgTimingOffsetMs = meanDt * 1000.0
	}
	if len(dynRatios) > 0 {
		meanRatio = stat.Mean(dynRatios, nil)
		w.avgEnergyRatio = meanRatio
	}

	if len(pitchDevs) > 0 && meanCents > cal.ProblemPitchIssueC {
		w.issues = append(w.issues, "pitch")
	}
	if len(timingDevs) > 0 && meanDt > cal.ProblemTimingIssueS {
		w.issues = append(w.issues, "timing")
	}
	if len(dynRatios) > 0 && (meanRatio < cal.ProblemDynamicsLowBad || meanRatio > cal.ProblemDynamicsHighBad) {
		w.issues = append(w.issues, "dynamics")
	}

	w.badness = meanCents/cal.PitchZeroCents*cal.WeightPitch +
		meanDt/cal.TimingZeroS*cal.WeightTiming +
		math.Abs(1-meanRatio)*cal.WeightDynamics

	if len(refTimes) > 0 {
		sort.Float64s(refTimes)
		w.refStartS = refTimes[0]
		w.refEndS = refTimes[len(refTimes)-1]
		w.hasRef = true
	}
	return w
}
