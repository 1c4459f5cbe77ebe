/*
Package onset detects leading-noise in a user recording: the point at which
real, stable, reference-range singing begins, so the caller can trim silence
and false starts before alignment (spec §4.1).
*/
package onset

import (
	"log"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/choirmind/vocalcore/internal/calib"
	"github.com/choirmind/vocalcore/internal/cents"
	"github.com/choirmind/vocalcore/internal/feature"
)

/*
Detect slides a window across the first min(cal.OnsetScanS, user.DurationS)
seconds of the user stream and returns the start time of the first window
that looks like real singing in the reference's pitch range: voicing ratio,
pitch stability, and octave-folded range match against the reference's own
early voiced median. Returns 0 if no window qualifies, or if the reference
has no voiced frames in its own scan horizon.
*/
func Detect(user, ref feature.Feature, cal calib.Table) float64 {
	refMedianHz, ok := earlyMedianHz(ref, cal.OnsetScanS)
	if !ok {
		log.Printf("onset: reference has no voiced frames in first %.1fs, skipping trim", cal.OnsetScanS)
		return 0
	}

	scanLimit := cal.OnsetScanS
	if user.DurationS < scanLimit {
		scanLimit = user.DurationS
	}

	for t := 0.0; t+cal.OnsetWindowS <= scanLimit+1e-9; t += cal.OnsetStepS {
		hz, voicingRatio := windowVoicedHz(user, t, t+cal.OnsetWindowS)
		if voicingRatio < cal.OnsetMinVoicingFrac {
			continue
		}
		if len(hz) < 2 {
			continue
		}
		medianHz := median(hz)

		stabilityC := stddevCentsFromMedian(hz, medianHz)
		if stabilityC > cal.OnsetMaxStabilityC {
			continue
		}

		rangeDiffC := cents.OfFolded(medianHz, refMedianHz)
		if abs(rangeDiffC) > cal.OnsetMaxRangeDiffC {
			continue
		}

		log.Printf("onset: singing detected at t=%.3fs (voicing=%.2f stability=%.1fc range=%.1fc)",
			t, voicingRatio, stabilityC, rangeDiffC)
		return t
	}

	return 0
}

/*
Trim drops every frame of f that falls before onsetS, leaving the surviving
frames' time values untouched (absolute time, not re-based to zero) so that
downstream section scores and problem-area timestamps stay directly
comparable to the original recording. No-op unless onsetS exceeds
cal.OnsetTrimMinS.
*/
func Trim(f feature.Feature, onsetS float64, cal calib.Table) feature.Feature {
	if onsetS <= cal.OnsetTrimMinS {
		return f
	}

	pitchStart := len(f.PitchTimes)
	for i, t := range f.PitchTimes {
		if t >= onsetS {
			pitchStart = i
			break
		}
	}
	rmsStart := len(f.RMSTimes)
	for i, t := range f.RMSTimes {
		if t >= onsetS {
			rmsStart = i
			break
		}
	}
	onsets := make([]float64, 0, len(f.OnsetTimes))
	for _, t := range f.OnsetTimes {
		if t >= onsetS {
			onsets = append(onsets, t)
		}
	}

	trimmed := feature.Feature{
		PitchHz:    append([]float64(nil), f.PitchHz[pitchStart:]...),
		Voiced:     append([]bool(nil), f.Voiced[pitchStart:]...),
		PitchTimes: append([]float64(nil), f.PitchTimes[pitchStart:]...),
		OnsetTimes: onsets,
		RMSValues:  append([]float64(nil), f.RMSValues[rmsStart:]...),
		RMSTimes:   append([]float64(nil), f.RMSTimes[rmsStart:]...),
		DurationS:  f.DurationS,
	}
	log.Printf("onset: trimmed %d leading pitch frames (onset=%.3fs)", pitchStart, onsetS)
	return trimmed
}

// earlyMedianHz returns the median Hz over the voiced frames in f's first
// scanS seconds, and whether any voiced frame was found.
func earlyMedianHz(f feature.Feature, scanS float64) (float64, bool) {
	var hz []float64
	for i, t := range f.PitchTimes {
		if t > scanS {
			break
		}
		if v, ok := f.HzAt(i); ok {
			hz = append(hz, v)
		}
	}
	if len(hz) == 0 {
		return 0, false
	}
	return median(hz), true
}

// windowVoicedHz returns the voiced Hz values whose time falls in
// [start, end), plus the voicing ratio over all frames (voiced or not) in
// that span.
func windowVoicedHz(f feature.Feature, start, end float64) ([]float64, float64) {
	var hz []float64
	total := 0
	for i, t := range f.PitchTimes {
		if t < start {
			continue
		}
		if t >= end {
			break
		}
		total++
		if v, ok := f.HzAt(i); ok {
			hz = append(hz, v)
		}
	}
	if total == 0 {
		return hz, 0
	}
	return hz, float64(len(hz)) / float64(total)
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

func stddevCentsFromMedian(hz []float64, medianHz float64) float64 {
	if len(hz) < 2 {
		return 0
	}
	c := make([]float64, len(hz))
	for i, h := range hz {
		c[i] = cents.Of(h, medianHz)
	}
	_, sd := stat.MeanStdDev(c, nil)
	return sd
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
