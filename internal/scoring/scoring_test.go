package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/choirmind/vocalcore/internal/align"
	"github.com/choirmind/vocalcore/internal/calib"
	"github.com/choirmind/vocalcore/internal/feature"
	"github.com/choirmind/vocalcore/internal/normalize"
	"github.com/choirmind/vocalcore/internal/scoring"
)

func TestPitch_PerfectWhenWithinBand(t *testing.T) {
	cal := calib.Default()
	d := normalize.Deduped{
		PitchCents: []float64{10, -20},
		PitchValid: []bool{true, true},
	}
	score, ok := scoring.Pitch(d, cal)
	require.True(t, ok)
	require.Equal(t, 100.0, score)
}

func TestPitch_ZeroAtOrBeyondZeroCents(t *testing.T) {
	cal := calib.Default()
	d := normalize.Deduped{
		PitchCents: []float64{500},
		PitchValid: []bool{true},
	}
	score, ok := scoring.Pitch(d, cal)
	require.True(t, ok)
	require.Equal(t, 0.0, score)
}

func TestPitch_LinearInterior(t *testing.T) {
	cal := calib.Default() // perfect=100, zero=400
	d := normalize.Deduped{
		PitchCents: []float64{250}, // midpoint
		PitchValid: []bool{true},
	}
	score, ok := scoring.Pitch(d, cal)
	require.True(t, ok)
	require.InDelta(t, 50.0, score, 1e-9)
}

func TestPitch_NotOkWhenNoValidPair(t *testing.T) {
	cal := calib.Default()
	d := normalize.Deduped{PitchCents: []float64{10}, PitchValid: []bool{false}}
	_, ok := scoring.Pitch(d, cal)
	require.False(t, ok)
}

func TestTiming_PerfectWhenWithinBand(t *testing.T) {
	cal := calib.Default()
	d := normalize.Deduped{TimingOffsets: []float64{0.1, -0.2}}
	score, ok := scoring.Timing(d, cal)
	require.True(t, ok)
	require.Equal(t, 100.0, score)
}

func TestTiming_NotOkWhenNoPairs(t *testing.T) {
	cal := calib.Default()
	_, ok := scoring.Timing(normalize.Deduped{}, cal)
	require.False(t, ok)
}

func TestDynamics_PerfectInsideBand(t *testing.T) {
	cal := calib.Default()
	d := normalize.Deduped{EnergyRatio: []float64{1.0}, EnergyValid: []bool{true}}
	score, ok := scoring.Dynamics(d, cal)
	require.True(t, ok)
	require.Equal(t, 100.0, score)
}

func TestDynamics_ZeroBelowZeroLow(t *testing.T) {
	cal := calib.Default()
	d := normalize.Deduped{EnergyRatio: []float64{0.1}, EnergyValid: []bool{true}}
	score, ok := scoring.Dynamics(d, cal)
	require.True(t, ok)
	require.Equal(t, 0.0, score)
}

func TestDynamics_ZeroAboveZeroHigh(t *testing.T) {
	cal := calib.Default()
	d := normalize.Deduped{EnergyRatio: []float64{5.0}, EnergyValid: []bool{true}}
	score, ok := scoring.Dynamics(d, cal)
	require.True(t, ok)
	require.Equal(t, 0.0, score)
}

func TestDynamics_NotOkWhenNoValidPair(t *testing.T) {
	cal := calib.Default()
	d := normalize.Deduped{EnergyRatio: []float64{1.0}, EnergyValid: []bool{false}}
	_, ok := scoring.Dynamics(d, cal)
	require.False(t, ok)
}

func TestOverall_WeightedCombination(t *testing.T) {
	cal := calib.Default() // 0.70/0.15/0.15
	got := scoring.Overall(100, 0, 0, cal)
	require.InDelta(t, 70.0, got, 1e-9)
}

func TestSections_OnePerSecondOfUserDuration(t *testing.T) {
	cal := calib.Default()
	user := feature.Feature{
		PitchHz:    []float64{440, 440, 440},
		Voiced:     []bool{true, true, true},
		PitchTimes: []float64{0.1, 1.1, 2.1},
		DurationS:  2.5,
	}
	ref := user
	d := normalize.Deduped{
		Path:          []align.Pair{{0, 0}, {1, 1}, {2, 2}},
		PitchCents:    []float64{0, 0, 0},
		PitchValid:    []bool{true, true, true},
		TimingOffsets: []float64{0, 0, 0},
		EnergyRatio:   []float64{1, 1, 1},
		EnergyValid:   []bool{false, false, false},
	}
	sections := scoring.Sections(d, user, ref, cal)
	require.Len(t, sections, 3) // math.Round(2.5) rounds half away from zero -> 3
	for i, s := range sections {
		require.Equal(t, i, s.Index)
	}
}

func TestSections_SilentSecondHasNilScores(t *testing.T) {
	cal := calib.Default()
	user := feature.Feature{
		PitchHz:    []float64{440},
		Voiced:     []bool{true},
		PitchTimes: []float64{0.1},
		DurationS:  3.0,
	}
	ref := user
	d := normalize.Deduped{
		Path:          []align.Pair{{0, 0}},
		PitchCents:    []float64{0},
		PitchValid:    []bool{true},
		TimingOffsets: []float64{0},
		EnergyRatio:   []float64{1},
		EnergyValid:   []bool{false},
	}
	sections := scoring.Sections(d, user, ref, cal)
	require.Len(t, sections, 3)
	require.Nil(t, sections[1].PitchScore)
	require.Nil(t, sections[1].OverallScore)
	require.NotNil(t, sections[0].PitchScore)
}

func TestSections_NoteAnnotationWhenBothSidesVoiced(t *testing.T) {
	cal := calib.Default()
	user := feature.Feature{
		PitchHz:    []float64{440},
		Voiced:     []bool{true},
		PitchTimes: []float64{0.1},
		DurationS:  1.0,
	}
	ref := feature.Feature{
		PitchHz:    []float64{440},
		Voiced:     []bool{true},
		PitchTimes: []float64{0.1},
		DurationS:  1.0,
	}
	d := normalize.Deduped{
		Path:          []align.Pair{{0, 0}},
		PitchCents:    []float64{0},
		PitchValid:    []bool{true},
		TimingOffsets: []float64{0},
		EnergyRatio:   []float64{1},
		EnergyValid:   []bool{true},
	}
	sections := scoring.Sections(d, user, ref, cal)
	require.NotNil(t, sections[0].RefNote)
	require.NotNil(t, sections[0].UserNote)
	require.NotNil(t, sections[0].NoteMatch)
	require.True(t, *sections[0].NoteMatch)
	require.Equal(t, 0, *sections[0].OctaveDiff)
}
