/*
Package scoring turns deduplicated deviations into the 0-100 scores a
singer sees: one number per dimension (pitch, timing, dynamics), a weighted
overall score, and a per-second breakdown annotated with the dominant note
on each side (spec §4.7).
*/
package scoring

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/choirmind/vocalcore/internal/calib"
	"github.com/choirmind/vocalcore/internal/cents"
	"github.com/choirmind/vocalcore/internal/feature"
	"github.com/choirmind/vocalcore/internal/normalize"
	"github.com/choirmind/vocalcore/internal/note"
)

// linearBand maps a non-negative deviation to [0,100]: 100 at or below
// perfect, 0 at or above zero, linear in between.
func linearBand(dev, perfect, zero float64) float64 {
	if dev <= perfect {
		return 100.0
	}
	if dev >= zero {
		return 0.0
	}
	return 100.0 * (zero - dev) / (zero - perfect)
}

// pitchPairScore scores a single pitch deviation in cents.
func pitchPairScore(absCents float64, cal calib.Table) float64 {
	return linearBand(absCents, cal.PitchPerfectCents, cal.PitchZeroCents)
}

// timingPairScore scores a single timing offset in seconds.
func timingPairScore(absSeconds float64, cal calib.Table) float64 {
	return linearBand(absSeconds, cal.TimingPerfectS, cal.TimingZeroS)
}

// dynamicsPairScore scores a single energy ratio against a two-sided band:
// 100 inside [perfectLow, perfectHigh], 0 at or beyond [zeroLow, zeroHigh],
// linear in between on whichever side the ratio falls.
func dynamicsPairScore(ratio float64, cal calib.Table) float64 {
	switch {
	case ratio >= cal.DynamicsPerfectLow && ratio <= cal.DynamicsPerfectHigh:
		return 100.0
	case ratio < cal.DynamicsPerfectLow:
		return linearBand(cal.DynamicsPerfectLow-ratio, 0, cal.DynamicsPerfectLow-cal.DynamicsZeroLow)
	default:
		return linearBand(ratio-cal.DynamicsPerfectHigh, 0, cal.DynamicsZeroHigh-cal.DynamicsPerfectHigh)
	}
}

// Pitch averages the per-pair pitch scores over every voiced pair in d. ok
// is false when d has no voiced pitch pair, in which case the caller should
// fall back to a neutral default.
func Pitch(d normalize.Deduped, cal calib.Table) (score float64, ok bool) {
	var scores []float64
	for i, valid := range d.PitchValid {
		if !valid {
			continue
		}
		scores = append(scores, pitchPairScore(math.Abs(d.PitchCents[i]), cal))
	}
	if len(scores) == 0 {
		return 0, false
	}
	return stat.Mean(scores, nil), true
}

// Timing averages the per-pair timing scores over every pair in d (every
// aligned pair carries a timing offset, voiced or not).
func Timing(d normalize.Deduped, cal calib.Table) (score float64, ok bool) {
	if len(d.TimingOffsets) == 0 {
		return 0, false
	}
	scores := make([]float64, len(d.TimingOffsets))
	for i, off := range d.TimingOffsets {
		scores[i] = timingPairScore(math.Abs(off), cal)
	}
	return stat.Mean(scores, nil), true
}

// Dynamics averages the per-pair dynamics scores over every pair in d with
// a valid energy ratio.
func Dynamics(d normalize.Deduped, cal calib.Table) (score float64, ok bool) {
	var scores []float64
	for i, valid := range d.EnergyValid {
		if !valid {
			continue
		}
		scores = append(scores, dynamicsPairScore(d.EnergyRatio[i], cal))
	}
	if len(scores) == 0 {
		return 0, false
	}
	return stat.Mean(scores, nil), true
}

// Overall combines the three dimension scores using cal's weights.
func Overall(pitch, timing, dynamics float64, cal calib.Table) float64 {
	return cal.WeightPitch*pitch + cal.WeightTiming*timing + cal.WeightDynamics*dynamics
}

// Section is one one-second slice of the performance, scored independently
// and annotated with the dominant note each side was singing.
type Section struct {
	Index  int
	StartS float64
	EndS   float64

	OverallScore  *float64
	PitchScore    *float64
	TimingScore   *float64
	DynamicsScore *float64

	RefNote  *string
	UserNote *string

	NoteMatch       *bool
	PitchClassMatch *bool
	OctaveDiff      *int
}

/*
Sections partitions the user timeline, from 0 to round(user.DurationS)
seconds, into one-second windows and scores each window independently from
the subset of d's pairs whose user time falls inside it. A dimension with
no eligible samples in a window is left nil. Each window is also annotated
with the dominant (median-pitch) note on each side, when voiced frames are
present.
*/
func Sections(d normalize.Deduped, user, ref feature.Feature, cal calib.Table) []Section {
	total := int(math.Round(user.DurationS))
	if total < 1 {
		total = 1
	}

	sections := make([]Section, 0, total)
	for s := 0; s < total; s++ {
		startS := float64(s)
		endS := float64(s + 1)
		sections = append(sections, scoreSection(d, user, ref, cal, s, startS, endS))
	}
	return sections
}

func scoreSection(d normalize.Deduped, user, ref feature.Feature, cal calib.Table, index int, startS, endS float64) Section {
	sec := Section{Index: index, StartS: startS, EndS: endS}

	var pitchScores, timingScores, dynScores []float64
	for i, p := range d.Path {
		ut := user.PitchTimes[p.U]
		if ut < startS || ut >= endS {
			continue
		}
		if d.PitchValid[i] {
			pitchScores = append(pitchScores, pitchPairScore(math.Abs(d.PitchCents[i]), cal))
		}
		timingScores = append(timingScores, timingPairScore(math.Abs(d.TimingOffsets[i]), cal))
		if d.EnergyValid[i] {
			dynScores = append(dynScores, dynamicsPairScore(d.EnergyRatio[i], cal))
		}
	}
	if len(pitchScores) > 0 {
		v := stat.Mean(pitchScores, nil)
		sec.PitchScore = &v
	}
	if len(timingScores) > 0 {
		v := stat.Mean(timingScores, nil)
		sec.TimingScore = &v
	}
	if len(dynScores) > 0 {
		v := stat.Mean(dynScores, nil)
		sec.DynamicsScore = &v
	}
	sec.OverallScore = weightedOverall(sec.PitchScore, sec.TimingScore, sec.DynamicsScore, cal)

	userHz, userOK := dominantHz(user, startS, endS)
	refHz, refOK := dominantHz(ref, startS, endS)
	if userOK {
		class, octave := note.ClassAndOctave(userHz, cal.A4Hz)
		name := class + strconv.Itoa(octave)
		sec.UserNote = &name
	}
	if refOK {
		class, octave := note.ClassAndOctave(refHz, cal.A4Hz)
		name := class + strconv.Itoa(octave)
		sec.RefNote = &name
	}
	if userOK && refOK {
		userClass, userOctave := note.ClassAndOctave(userHz, cal.A4Hz)
		refClass, refOctave := note.ClassAndOctave(refHz, cal.A4Hz)
		centsOff := cents.Of(userHz, refHz)
		noteMatch := math.Abs(centsOff) <= cal.NoteMatchCents
		pitchClassMatch := noteMatch || userClass == refClass
		octaveDiff := userOctave - refOctave
		sec.NoteMatch = &noteMatch
		sec.PitchClassMatch = &pitchClassMatch
		sec.OctaveDiff = &octaveDiff
	}

	return sec
}

// weightedOverall combines whichever of the three section sub-scores are
// present, renormalizing cal's weights over the present dimensions. Returns
// nil if none are present (a fully silent second).
func weightedOverall(pitch, timing, dynamics *float64, cal calib.Table) *float64 {
	var weightSum, scoreSum float64
	if pitch != nil {
		weightSum += cal.WeightPitch
		scoreSum += cal.WeightPitch * *pitch
	}
	if timing != nil {
		weightSum += cal.WeightTiming
		scoreSum += cal.WeightTiming * *timing
	}
	if dynamics != nil {
		weightSum += cal.WeightDynamics
		scoreSum += cal.WeightDynamics * *dynamics
	}
	if weightSum == 0 {
		return nil
	}
	v := scoreSum / weightSum
	return &v
}

// dominantHz returns the median Hz of f's voiced frames whose pitch time
// falls in [startS, endS).
func dominantHz(f feature.Feature, startS, endS float64) (float64, bool) {
	var hz []float64
	for i, t := range f.PitchTimes {
		if t < startS || t >= endS {
			continue
		}
		if h, voiced := f.HzAt(i); voiced {
			hz = append(hz, h)
		}
	}
	if len(hz) == 0 {
		return 0, false
	}
	sort.Float64s(hz)
	return stat.Quantile(0.5, stat.Empirical, hz, nil), true
}
