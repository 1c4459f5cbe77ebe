/*
Package deviation walks a warping path and produces the per-pair pitch,
timing, and energy deviations the scorer and problem finder consume
(spec §4.4). Unvoiced or otherwise meaningless comparisons are flagged via
parallel boolean masks rather than a sentinel float, per spec §9's
"Unvoiced sentinel" design note.
*/
package deviation

import (
	"github.com/choirmind/vocalcore/internal/align"
	"github.com/choirmind/vocalcore/internal/calib"
	"github.com/choirmind/vocalcore/internal/cents"
	"github.com/choirmind/vocalcore/internal/feature"
)

// Set holds one entry per path pair, aligned index-for-index with Path.
type Set struct {
	Path []align.Pair

	PitchCents []float64 // valid only where PitchValid[i]
	PitchValid []bool

	TimingRaw []float64 // seconds, user_time - ref_time, before baseline removal

	EnergyRatio []float64 // valid only where EnergyValid[i]
	EnergyValid []bool
}

// Compute builds a Set from path by looking up Hz, time, and RMS values in
// user and ref. user and ref must be the same Feature values the path's
// indices were computed against.
func Compute(path []align.Pair, user, ref feature.Feature, cal calib.Table) Set {
	n := len(path)
	s := Set{
		Path:        path,
		PitchCents:  make([]float64, n),
		PitchValid:  make([]bool, n),
		TimingRaw:   make([]float64, n),
		EnergyRatio: make([]float64, n),
		EnergyValid: make([]bool, n),
	}

	hasUserRMS := user.NumRMSFrames() > 0
	hasRefRMS := ref.NumRMSFrames() > 0

	for i, p := range path {
		uHz, uVoiced := user.HzAt(p.U)
		rHz, rVoiced := ref.HzAt(p.R)
		if uVoiced && rVoiced {
			s.PitchCents[i] = cents.Fold(cents.Of(uHz, rHz))
			s.PitchValid[i] = true
		}

		var uT, rT float64
		if p.U < len(user.PitchTimes) {
			uT = user.PitchTimes[p.U]
		}
		if p.R < len(ref.PitchTimes) {
			rT = ref.PitchTimes[p.R]
		}
		s.TimingRaw[i] = uT - rT

		if hasUserRMS && hasRefRMS {
			uRMS := user.RMSValues[user.NearestRMSIndex(uT)]
			rRMS := ref.RMSValues[ref.NearestRMSIndex(rT)]
			if rRMS > cal.EnergyRefFloor {
				s.EnergyRatio[i] = uRMS / rRMS
				s.EnergyValid[i] = true
			}
		}
	}
	return s
}
