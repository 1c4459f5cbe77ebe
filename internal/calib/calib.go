/*
Package calib centralizes the scoring-calibration constants used across the
alignment and scoring pipeline: perfect/zero bands for each dimension,
aggregation weights, onset-detection thresholds, note-segmentation
thresholds, and problem-window parameters.

The values are the current calibrated defaults for choir-level scoring.
They live in one Table so a caller can tune them (for A/B testing, for a
different skill level, or in a test that wants to probe an edge of a band)
without touching any algorithm code.
*/
package calib

/*
Table holds every named threshold and weight consulted by the alignment and
scoring pipeline, except the DTW feature builder's fixed component weights
and pitch range, which are constants of package dtwfeat. Zero-value Table is not meaningful; use Default() or
Default(opts...) to obtain one.
*/
type Table struct {
	// Aggregate weights (spec §4.7); must sum to 1.0.
	WeightPitch    float64
	WeightTiming   float64
	WeightDynamics float64

	// Pitch dimension, cents.
	PitchPerfectCents float64
	PitchZeroCents    float64

	// Timing dimension, seconds.
	TimingPerfectS float64
	TimingZeroS    float64

	// Dynamics dimension, energy ratio user/ref.
	DynamicsPerfectLow  float64
	DynamicsPerfectHigh float64
	DynamicsZeroLow     float64
	DynamicsZeroHigh    float64

	// Onset detector (spec §4.1).
	OnsetWindowS        float64
	OnsetStepS          float64
	OnsetScanS          float64 // scan at most this much of the user stream
	OnsetMinVoicingFrac float64
	OnsetMaxStabilityC  float64 // cents stddev within window
	OnsetMaxRangeDiffC  float64 // octave-folded cents vs reference median
	OnsetTrimMinS       float64 // trim is only applied if detected onset exceeds this

	// Aligner (spec §4.3).
	DTWRadius      int
	RefTruncSlackS float64 // ref truncated at user_duration*RefTruncFactor + RefTruncSlackS
	RefTruncFactor float64
	EnergyRefFloor float64 // at or below this, energy ratio is unvoiced (spec §4.4)

	// Sanity checker (spec §4.6).
	SanitySampleS   float64
	SanityDriftLow  float64
	SanityDriftHigh float64

	// Problem finder (spec §4.8).
	ProblemWindowS         float64
	ProblemStepS           float64
	ProblemPitchIssueC     float64
	ProblemTimingIssueS    float64
	ProblemDynamicsLowBad  float64
	ProblemDynamicsHighBad float64
	ProblemMaxSelected     int

	// Note extractor/aligner (spec §4.9).
	NoteMinDurationS     float64
	NoteJumpCents        float64
	NoteOnsetToleranceS  float64
	NoteDipToleranceS    float64
	NoteDipDropFrac      float64 // rms[i] < frac*rms[i-1]
	NoteDipRiseFrac      float64 // rms[i+1] > frac*rms[i]
	NoteMatchCents       float64 // <= this many cents -> noteMatch
	NotePairSearchWindow float64 // seconds, +/- around candidate start
	NotePairLookahead    int     // max candidates examined per ref note

	A4Hz float64
}

// Option mutates a Table being built by Default. Later options override
// earlier ones, mirroring the BuilderOption pattern used for graph
// construction parameters elsewhere in the ecosystem.
type Option func(*Table)

// Default returns the calibrated Table from spec, with any opts applied in
// order on top of the baseline values.
func Default(opts ...Option) Table {
	t := Table{
		WeightPitch:    0.70,
		WeightTiming:   0.15,
		WeightDynamics: 0.15,

		PitchPerfectCents: 100.0,
		PitchZeroCents:    400.0,

		TimingPerfectS: 0.5,
		TimingZeroS:    2.0,

		DynamicsPerfectLow:  0.5,
		DynamicsPerfectHigh: 2.0,
		DynamicsZeroLow:     0.2,
		DynamicsZeroHigh:    3.0,

		OnsetWindowS:        1.0,
		OnsetStepS:          0.25,
		OnsetScanS:          5.0,
		OnsetMinVoicingFrac: 0.30,
		OnsetMaxStabilityC:  200.0,
		OnsetMaxRangeDiffC:  500.0,
		OnsetTrimMinS:       0.2,

		DTWRadius:      50,
		RefTruncSlackS: 5.0,
		RefTruncFactor: 1.2,
		EnergyRefFloor: 1e-6,

		SanitySampleS:   1.0,
		SanityDriftLow:  0.5,
		SanityDriftHigh: 2.0,

		ProblemWindowS:         2.0,
		ProblemStepS:           1.0,
		ProblemPitchIssueC:     150.0,
		ProblemTimingIssueS:    1.5,
		ProblemDynamicsLowBad:  0.35,
		ProblemDynamicsHighBad: 3.0,
		ProblemMaxSelected:     3,

		NoteMinDurationS:     0.12,
		NoteJumpCents:        100.0,
		NoteOnsetToleranceS:  0.05,
		NoteDipToleranceS:    0.05,
		NoteDipDropFrac:      0.7,
		NoteDipRiseFrac:      1.3,
		NoteMatchCents:       100.0,
		NotePairSearchWindow: 2.0,
		NotePairLookahead:    8,

		A4Hz: 440.0,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// WithWeights overrides the overall-score aggregation weights. Values are
// not renormalized; callers are responsible for supplying weights that sum
// to 1.0 if they want overall scores to stay within [0,100].
func WithWeights(pitch, timing, dynamics float64) Option {
	return func(t *Table) {
		t.WeightPitch = pitch
		t.WeightTiming = timing
		t.WeightDynamics = dynamics
	}
}

// WithPitchBand overrides the pitch dimension's perfect/zero cents cutoffs.
func WithPitchBand(perfectCents, zeroCents float64) Option {
	return func(t *Table) {
		t.PitchPerfectCents = perfectCents
		t.PitchZeroCents = zeroCents
	}
}

// WithTimingBand overrides the timing dimension's perfect/zero second cutoffs.
func WithTimingBand(perfectS, zeroS float64) Option {
	return func(t *Table) {
		t.TimingPerfectS = perfectS
		t.TimingZeroS = zeroS
	}
}

// WithDynamicsBand overrides the dynamics dimension's perfect/zero ratio bands.
func WithDynamicsBand(perfectLow, perfectHigh, zeroLow, zeroHigh float64) Option {
	return func(t *Table) {
		t.DynamicsPerfectLow = perfectLow
		t.DynamicsPerfectHigh = perfectHigh
		t.DynamicsZeroLow = zeroLow
		t.DynamicsZeroHigh = zeroHigh
	}
}

// WithOnsetWindow overrides the onset detector's window/step/scan-horizon
// parameters (seconds).
func WithOnsetWindow(windowS, stepS, scanS float64) Option {
	return func(t *Table) {
		t.OnsetWindowS = windowS
		t.OnsetStepS = stepS
		t.OnsetScanS = scanS
	}
}

// WithDTWRadius overrides the FastDTW search radius.
func WithDTWRadius(radius int) Option {
	return func(t *Table) {
		t.DTWRadius = radius
	}
}

// WithNoteThresholds overrides the note segmentation's minimum duration and
// pitch-jump thresholds.
func WithNoteThresholds(minDurationS, jumpCents float64) Option {
	return func(t *Table) {
		t.NoteMinDurationS = minDurationS
		t.NoteJumpCents = jumpCents
	}
}

// WithProblemWindow overrides the problem finder's window/step and the
// maximum number of problem areas selected.
func WithProblemWindow(windowS, stepS float64, maxSelected int) Option {
	return func(t *Table) {
		t.ProblemWindowS = windowS
		t.ProblemStepS = stepS
		t.ProblemMaxSelected = maxSelected
	}
}
