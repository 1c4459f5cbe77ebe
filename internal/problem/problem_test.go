package problem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/choirmind/vocalcore/internal/align"
	"github.com/choirmind/vocalcore/internal/calib"
	"github.com/choirmind/vocalcore/internal/feature"
	"github.com/choirmind/vocalcore/internal/normalize"
	"github.com/choirmind/vocalcore/internal/problem"
)

func buildFeature(n int, stepS float64) feature.Feature {
	hz := make([]float64, n)
	voiced := make([]bool, n)
	times := make([]float64, n)
	for i := 0; i < n; i++ {
		hz[i] = 440
		voiced[i] = true
		times[i] = float64(i) * stepS
	}
	return feature.Feature{PitchHz: hz, Voiced: voiced, PitchTimes: times, DurationS: float64(n) * stepS}
}

func TestFind_NoIssuesWhenAllWithinBand(t *testing.T) {
	cal := calib.Default()
	n := 100
	user := buildFeature(n, 0.1) // 10s
	ref := buildFeature(n, 0.1)
	path := make([]align.Pair, n)
	pitchCents := make([]float64, n)
	pitchValid := make([]bool, n)
	timing := make([]float64, n)
	for i := 0; i < n; i++ {
		path[i] = align.Pair{U: i, R: i}
		pitchValid[i] = true
	}
	d := normalize.Deduped{Path: path, PitchCents: pitchCents, PitchValid: pitchValid, TimingOffsets: timing}

	areas := problem.Find(d, user, ref, cal)
	require.Empty(t, areas)
}

func TestFind_FlagsPitchIssue(t *testing.T) {
	cal := calib.Default()
	n := 100
	user := buildFeature(n, 0.1)
	ref := buildFeature(n, 0.1)
	path := make([]align.Pair, n)
	pitchCents := make([]float64, n)
	pitchValid := make([]bool, n)
	timing := make([]float64, n)
	for i := 0; i < n; i++ {
		path[i] = align.Pair{U: i, R: i}
		pitchValid[i] = true
		if i >= 20 && i < 40 { // 2s-4s window, flat out of tune
			pitchCents[i] = 300
		}
	}
	d := normalize.Deduped{Path: path, PitchCents: pitchCents, PitchValid: pitchValid, TimingOffsets: timing}

	areas := problem.Find(d, user, ref, cal)
	require.NotEmpty(t, areas)
	require.Contains(t, areas[0].Issues, "pitch")
	require.Greater(t, areas[0].AvgPitchDevCents, cal.ProblemPitchIssueC)
}

func TestFind_SelectsAtMostMaxSelected(t *testing.T) {
	base := calib.Default()
	cal := calib.Default(calib.WithProblemWindow(base.ProblemWindowS, base.ProblemStepS, 1))
	n := 200
	user := buildFeature(n, 0.1) // 20s
	ref := buildFeature(n, 0.1)
	path := make([]align.Pair, n)
	pitchCents := make([]float64, n)
	pitchValid := make([]bool, n)
	timing := make([]float64, n)
	for i := 0; i < n; i++ {
		path[i] = align.Pair{U: i, R: i}
		pitchValid[i] = true
		pitchCents[i] = 300 // every window is bad
	}
	d := normalize.Deduped{Path: path, PitchCents: pitchCents, PitchValid: pitchValid, TimingOffsets: timing}

	areas := problem.Find(d, user, ref, cal)
	require.LessOrEqual(t, len(areas), 1)
}

func TestFind_AreasAreNonOverlappingAndSortedByStart(t *testing.T) {
	cal := calib.Default()
	n := 400
	user := buildFeature(n, 0.1) // 40s
	ref := buildFeature(n, 0.1)
	path := make([]align.Pair, n)
	pitchCents := make([]float64, n)
	pitchValid := make([]bool, n)
	timing := make([]float64, n)
	for i := 0; i < n; i++ {
		path[i] = align.Pair{U: i, R: i}
		pitchValid[i] = true
	}
	// three disjoint bad spans
	for _, span := range [][2]int{{10, 30}, {100, 120}, {300, 320}} {
		for i := span[0]; i < span[1]; i++ {
			pitchCents[i] = 350
		}
	}
	d := normalize.Deduped{Path: path, PitchCents: pitchCents, PitchValid: pitchValid, TimingOffsets: timing}

	areas := problem.Find(d, user, ref, cal)
	require.LessOrEqual(t, len(areas), cal.ProblemMaxSelected)
	for i := 1; i < len(areas); i++ {
		require.LessOrEqual(t, areas[i-1].StartS, areas[i].StartS)
		require.LessOrEqual(t, areas[i-1].EndS, areas[i].StartS)
	}
}

func TestFind_EmptyPathYieldsNoAreas(t *testing.T) {
	cal := calib.Default()
	user := buildFeature(10, 0.1)
	ref := buildFeature(10, 0.1)
	areas := problem.Find(normalize.Deduped{}, user, ref, cal)
	require.Empty(t, areas)
}

func TestFind_RefSpanPopulatedWhenRefTimesPresent(t *testing.T) {
	cal := calib.Default()
	n := 100
	user := buildFeature(n, 0.1)
	ref := buildFeature(n, 0.1)
	path := make([]align.Pair, n)
	pitchCents := make([]float64, n)
	pitchValid := make([]bool, n)
	timing := make([]float64, n)
	for i := 0; i < n; i++ {
		path[i] = align.Pair{U: i, R: i}
		pitchValid[i] = true
		if i >= 20 && i < 40 {
			pitchCents[i] = 300
		}
	}
	d := normalize.Deduped{Path: path, PitchCents: pitchCents, PitchValid: pitchValid, TimingOffsets: timing}

	areas := problem.Find(d, user, ref, cal)
	require.NotEmpty(t, areas)
	require.True(t, areas[0].HasRef)
	require.LessOrEqual(t, areas[0].RefStartS, areas[0].RefEndS)
}
