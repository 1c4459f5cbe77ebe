/*
Package dtwfeat builds the 3-D weighted feature vectors the aligner runs
FastDTW over: log-pitch, voicing, and RMS energy, each clipped to [0,1] and
scaled by a fixed component weight (spec §4.2).

Log-pitch folds the pitch distance into roughly one semitone per 1/64 of the
unit interval (50..2000 Hz spans about 64 semitones), so equal cent errors cost equal DTW distance. Voicing keeps
unvoiced silence from matching arbitrary pitches. RMS biases alignment
toward energy coincidences, breaking ties where pitch alone is flat.
*/
package dtwfeat

import (
	"math"

	"github.com/choirmind/vocalcore/internal/feature"
)

// Component weights from spec §4.2.
const (
	WeightLogPitch = 1.0
	WeightVoicing  = 0.5
	WeightRMS      = 0.3
)

var (
	log2MinHz = math.Log2(50.0)
	log2MaxHz = math.Log2(2000.0)
	log2Span  = log2MaxHz - log2MinHz
)

// Vector is one frame's weighted 3-D feature: [logPitch, voicing, rms].
type Vector [3]float64

// Build maps f's pitch array, with RMS interpolated onto the pitch time
// grid by nearest time, into a weighted 3-column sequence of the same
// length as f.PitchHz.
func Build(f feature.Feature) []Vector {
	out := make([]Vector, len(f.PitchHz))
	hasRMS := f.NumRMSFrames() > 0
	for i := range f.PitchHz {
		var logPitch, voicing float64
		if hz, ok := f.HzAt(i); ok {
			logPitch = clip01((math.Log2(math.Max(hz, 50.0))-log2MinHz)/log2Span, 0, 1)
			voicing = 1.0
		}

		var rms float64
		if hasRMS {
			idx := f.NearestRMSIndex(f.PitchTimes[i])
			rms = clip01(f.RMSValues[idx], 0, 1)
		}

		out[i] = Vector{
			WeightLogPitch * logPitch,
			WeightVoicing * voicing,
			WeightRMS * rms,
		}
	}
	return out
}

func clip01(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
