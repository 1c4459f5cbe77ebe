/*
Package sanity provides a diagnostic-only check over a normalized alignment
path: it samples the path at roughly one-second intervals in user time and
flags spans where the user/reference time ratio drifts outside [0.5, 2.0]
(spec §4.6). It never influences scoring.
*/
package sanity

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/choirmind/vocalcore/internal/calib"
	"github.com/choirmind/vocalcore/internal/feature"
	"github.com/choirmind/vocalcore/internal/normalize"
)

// DriftRegion is a sampled span whose slope falls outside the sane band.
type DriftRegion struct {
	UserTime float64
	RefTime  float64
	Slope    float64
}

// Report is the sanity checker's diagnostic output.
type Report struct {
	IsSane       bool
	DriftRegions []DriftRegion
	AvgSlope     float64 // mean of finite sampled slopes
}

// Check samples d at ~cal.SanitySampleS-second intervals in user time and
// computes the slope between consecutive samples.
func Check(d normalize.Deduped, user, ref feature.Feature, cal calib.Table) Report {
	if len(d.Path) == 0 {
		return Report{IsSane: true}
	}

	lastUserT := user.PitchTimes[d.Path[len(d.Path)-1].U]

	var sampleUserT, sampleRefT []float64
	idx := 0
	for target := 0.0; target <= lastUserT+1e-9; target += cal.SanitySampleS {
		for idx < len(d.Path)-1 && user.PitchTimes[d.Path[idx].U] < target {
			idx++
		}
		sampleUserT = append(sampleUserT, user.PitchTimes[d.Path[idx].U])
		sampleRefT = append(sampleRefT, ref.PitchTimes[d.Path[idx].R])
	}

	var regions []DriftRegion
	var finiteSlopes []float64
	for i := 1; i < len(sampleUserT); i++ {
		du := sampleUserT[i] - sampleUserT[i-1]
		dr := sampleRefT[i] - sampleRefT[i-1]
		if du == 0 && dr == 0 {
			continue
		}

		var slope float64
		if dr == 0 {
			slope = math.Inf(1)
		} else {
			slope = du / dr
		}

		if math.IsInf(slope, 0) || slope < cal.SanityDriftLow || slope > cal.SanityDriftHigh {
			regions = append(regions, DriftRegion{sampleUserT[i], sampleRefT[i], slope})
		}
		if !math.IsInf(slope, 0) {
			finiteSlopes = append(finiteSlopes, slope)
		}
	}

	avg := 0.0
	if len(finiteSlopes) > 0 {
		avg = stat.Mean(finiteSlopes, nil)
	}
	return Report{
		IsSane:       len(regions) == 0,
		DriftRegions: regions,
		AvgSlope:     avg,
	}
}
