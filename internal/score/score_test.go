package score_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/choirmind/vocalcore/internal/calib"
	"github.com/choirmind/vocalcore/internal/feature"
	"github.com/choirmind/vocalcore/internal/score"
)

func toneFeature(n int, stepS, hz float64) feature.Feature {
	pitch := make([]float64, n)
	voiced := make([]bool, n)
	times := make([]float64, n)
	rms := make([]float64, n)
	for i := 0; i < n; i++ {
		pitch[i] = hz
		voiced[i] = true
		times[i] = float64(i) * stepS
		rms[i] = 0.5
	}
	return feature.Feature{
		PitchHz:    pitch,
		Voiced:     voiced,
		PitchTimes: times,
		RMSValues:  rms,
		RMSTimes:   times,
		DurationS:  float64(n) * stepS,
	}
}

func TestScore_DegenerateEmptyUserReturnsNeutralReport(t *testing.T) {
	user := feature.Feature{}
	ref := toneFeature(100, 0.01, 440.0)

	report, err := score.Score(user, ref)
	require.NoError(t, err)
	require.Equal(t, 50.0, report.OverallScore)
	require.Equal(t, 50.0, report.PitchScore)
	require.Equal(t, 50.0, report.TimingScore)
	require.Equal(t, 50.0, report.DynamicsScore)
	require.NotNil(t, report.SectionScores)
	require.Empty(t, report.SectionScores)
	require.NotNil(t, report.ProblemAreas)
	require.Empty(t, report.ProblemAreas)
	require.NotNil(t, report.NoteComparison)
	require.Empty(t, report.NoteComparison)
}

func TestScore_DegenerateFullyUnvoicedReturnsNeutralReport(t *testing.T) {
	n := 50
	pitch := make([]float64, n)
	voiced := make([]bool, n)
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * 0.01
	}
	user := feature.Feature{PitchHz: pitch, Voiced: voiced, PitchTimes: times, DurationS: 0.5}
	ref := toneFeature(100, 0.01, 440.0)

	report, err := score.Score(user, ref)
	require.NoError(t, err)
	require.Equal(t, 50.0, report.OverallScore)
}

func TestScore_InvalidUserFeaturesReturnsError(t *testing.T) {
	user := feature.Feature{PitchHz: []float64{440}, Voiced: []bool{true, true}} // mismatched lengths
	ref := toneFeature(10, 0.01, 440.0)

	_, err := score.Score(user, ref)
	require.Error(t, err)
	var ie *feature.InvalidFeatures
	require.ErrorAs(t, err, &ie)
	require.Equal(t, "user", ie.Which)
}

func TestScore_InvalidRefFeaturesReturnsError(t *testing.T) {
	user := toneFeature(10, 0.01, 440.0)
	ref := feature.Feature{PitchHz: []float64{440}, Voiced: []bool{true, true}}

	_, err := score.Score(user, ref)
	require.Error(t, err)
	var ie *feature.InvalidFeatures
	require.ErrorAs(t, err, &ie)
	require.Equal(t, "ref", ie.Which)
}

func TestScore_IdenticalPerformanceScoresNearPerfect(t *testing.T) {
	n := 500
	user := toneFeature(n, 0.01, 440.0) // 5 seconds
	ref := toneFeature(n, 0.01, 440.0)

	report, err := score.Score(user, ref)
	require.NoError(t, err)
	require.Greater(t, report.OverallScore, 90.0)
	require.Greater(t, report.PitchScore, 90.0)
	require.Greater(t, report.TimingScore, 90.0)
	require.Greater(t, report.DynamicsScore, 90.0)
}

func TestScore_ScoresAreBoundedAndRoundedToOneDecimal(t *testing.T) {
	n := 300
	user := toneFeature(n, 0.01, 440.0)
	ref := toneFeature(n, 0.01, 440.0)

	report, err := score.Score(user, ref)
	require.NoError(t, err)
	for _, v := range []float64{report.OverallScore, report.PitchScore, report.TimingScore, report.DynamicsScore} {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 100.0)
		rounded := float64(int(v*10+0.5)) / 10
		require.InDelta(t, rounded, v, 1e-9)
	}
}

func TestScore_SectionScoresCoverUserDuration(t *testing.T) {
	n := 300 // 3 seconds
	user := toneFeature(n, 0.01, 440.0)
	ref := toneFeature(n, 0.01, 440.0)

	report, err := score.Score(user, ref)
	require.NoError(t, err)
	require.Len(t, report.SectionScores, 3)
	for i, s := range report.SectionScores {
		require.Equal(t, i, s.SectionIndex)
		require.Equal(t, float64(i), s.StartTime)
		require.Equal(t, float64(i+1), s.EndTime)
	}
}

func TestScore_NoteComparisonCountMatchesReferenceNoteCount(t *testing.T) {
	n := 200
	user := toneFeature(n, 0.01, 440.0)
	ref := toneFeature(n, 0.01, 440.0)

	report, err := score.Score(user, ref)
	require.NoError(t, err)
	require.Equal(t, len(report.NoteComparison), report.NoteCount())
	require.NotEmpty(t, report.NoteComparison)
	for _, nc := range report.NoteComparison {
		require.NotNil(t, nc.UserNote)
		require.True(t, nc.NoteMatch)
	}
}

func TestScore_OctaveDropFoldsToPerfectPitchScore(t *testing.T) {
	n := 300
	user := toneFeature(n, 0.01, 220.0) // down an octave from ref; folds to 0 cents
	ref := toneFeature(n, 0.01, 440.0)

	report, err := score.Score(user, ref)
	require.NoError(t, err)
	require.Equal(t, 100.0, report.PitchScore)
}

func TestScore_AcceptsFunctionalOptions(t *testing.T) {
	n := 300
	user := toneFeature(n, 0.01, 440.0)
	ref := toneFeature(n, 0.01, 440.0)

	_, err := score.Score(user, ref, calib.WithWeights(0.5, 0.3, 0.2))
	require.NoError(t, err)
}
