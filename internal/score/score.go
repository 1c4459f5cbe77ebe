/*
Package score is the pipeline's single entry point: it takes a user and a
reference Feature and produces a scored, JSON-ready Report (spec §4.11).
It owns call order only — every actual computation lives in the narrower
packages it wires together.
*/
package score

import (
	"log"
	"math"

	"github.com/choirmind/vocalcore/internal/align"
	"github.com/choirmind/vocalcore/internal/calib"
	"github.com/choirmind/vocalcore/internal/deviation"
	"github.com/choirmind/vocalcore/internal/dtwfeat"
	"github.com/choirmind/vocalcore/internal/feature"
	"github.com/choirmind/vocalcore/internal/normalize"
	"github.com/choirmind/vocalcore/internal/note"
	"github.com/choirmind/vocalcore/internal/onset"
	"github.com/choirmind/vocalcore/internal/problem"
	"github.com/choirmind/vocalcore/internal/sanity"
	"github.com/choirmind/vocalcore/internal/scoring"
)

// Report is the wire shape returned to a caller: one overall score, three
// per-dimension scores, a per-second breakdown, the worst problem areas,
// and a note-by-note comparison (spec §6).
type Report struct {
	OverallScore   float64          `json:"overallScore"`
	PitchScore     float64          `json:"pitchScore"`
	TimingScore    float64          `json:"timingScore"`
	DynamicsScore  float64          `json:"dynamicsScore"`
	SectionScores  []SectionScore   `json:"sectionScores"`
	ProblemAreas   []ProblemArea    `json:"problemAreas"`
	NoteComparison []NoteComparison `json:"noteComparison"`
}

// SectionScore is one one-second slice of the per-second breakdown.
type SectionScore struct {
	SectionIndex int     `json:"sectionIndex"`
	StartTime    float64 `json:"startTime"`
	EndTime      float64 `json:"endTime"`

	OverallScore  *float64 `json:"overallScore"`
	PitchScore    *float64 `json:"pitchScore"`
	TimingScore   *float64 `json:"timingScore"`
	DynamicsScore *float64 `json:"dynamicsScore"`

	RefNote  *string `json:"refNote"`
	UserNote *string `json:"userNote"`

	NoteMatch       *bool `json:"noteMatch"`
	PitchClassMatch *bool `json:"pitchClassMatch"`
	OctaveDiff      *int  `json:"octaveDiff"`
}

// ProblemArea is one flagged span surfaced for dual playback.
type ProblemArea struct {
	StartTime float64  `json:"startTime"`
	EndTime   float64  `json:"endTime"`
	Issues    []string `json:"issues"`

	AvgPitchDevCents  float64 `json:"avgPitchDevCents"`
	AvgTimingOffsetMs float64 `json:"avgTimingOffsetMs"`
	AvgEnergyRatio    float64 `json:"avgEnergyRatio"`

	RefStartTime *float64 `json:"refStartTime,omitempty"`
	RefEndTime   *float64 `json:"refEndTime,omitempty"`
}

// NoteComparison is one reference note matched (or not) to a user note.
type NoteComparison struct {
	NoteIndex     int      `json:"noteIndex"`
	RefNote       string   `json:"refNote"`
	RefStartTime  float64  `json:"refStartTime"`
	RefEndTime    float64  `json:"refEndTime"`
	UserNote      *string  `json:"userNote"`
	UserStartTime *float64 `json:"userStartTime"`
	UserEndTime   *float64 `json:"userEndTime"`

	NoteMatch       bool     `json:"noteMatch"`
	PitchClassMatch *bool    `json:"pitchClassMatch"`
	OctaveDiff      *int     `json:"octaveDiff"`
	CentsOff        *float64 `json:"centsOff"`
	TimingOffsetMs  *float64 `json:"timingOffsetMs"`
}

// NoteCount returns the number of reference notes compared, matched or not.
func (r Report) NoteCount() int {
	return len(r.NoteComparison)
}

const neutralScore = 50.0

/*
Score validates user and ref, then runs the full pipeline: onset detection
and trim, reference truncation, feature-vector building, FastDTW alignment,
deviation computation, deduplication/baseline removal, a diagnostic sanity
check, dimension and section scoring, problem-area detection, and note
extraction/pairing (the last of which runs on the untrimmed originals,
independent of the DTW path). Returns an *feature.InvalidFeatures if either
input violates the Feature invariants.
*/
func Score(user, ref feature.Feature, opts ...calib.Option) (Report, error) {
	cal := calib.Default(opts...)

	if err := feature.Validate(user); err != nil {
		ie := err.(*feature.InvalidFeatures)
		ie.Which = "user"
		return Report{}, ie
	}
	if err := feature.Validate(ref); err != nil {
		ie := err.(*feature.InvalidFeatures)
		ie.Which = "ref"
		return Report{}, ie
	}

	if isDegenerate(user) {
		log.Printf("score: user input is empty, zero-duration, or fully unvoiced; returning neutral report")
		return degenerateReport(), nil
	}

	onsetS := onset.Detect(user, ref, cal)
	trimmedUser := onset.Trim(user, onsetS, cal)

	truncatedRef, _ := align.TruncateReference(ref, trimmedUser.DurationS, cal)

	userVectors := dtwfeat.Build(trimmedUser)
	refVectors := dtwfeat.Build(truncatedRef)
	alignment := align.Run(userVectors, refVectors, cal.DTWRadius)

	devs := deviation.Compute(alignment.Path, trimmedUser, truncatedRef, cal)
	deduped := normalize.Dedup(devs, cal)

	if sr := sanity.Check(deduped, trimmedUser, truncatedRef, cal); !sr.IsSane {
		log.Printf("score: sanity check flagged %d drift region(s), avg slope %.3f",
			len(sr.DriftRegions), sr.AvgSlope)
	}

	pitchScore, ok := scoring.Pitch(deduped, cal)
	if !ok {
		pitchScore = neutralScore
	}
	timingScore, ok := scoring.Timing(deduped, cal)
	if !ok {
		timingScore = neutralScore
	}
	dynamicsScore, ok := scoring.Dynamics(deduped, cal)
	if !ok {
		dynamicsScore = neutralScore
	}
	overall := scoring.Overall(pitchScore, timingScore, dynamicsScore, cal)

	sections := scoring.Sections(deduped, trimmedUser, truncatedRef, cal)
	areas := problem.Find(deduped, trimmedUser, truncatedRef, cal)

	userNotes := note.Extract(user, cal)
	refNotes := note.Extract(ref, cal)
	pairs := note.PairNotes(refNotes, userNotes, cal)

	return Report{
		OverallScore:   round1(overall),
		PitchScore:     round1(pitchScore),
		TimingScore:    round1(timingScore),
		DynamicsScore:  round1(dynamicsScore),
		SectionScores:  buildSections(sections),
		ProblemAreas:   buildAreas(areas),
		NoteComparison: buildComparison(pairs),
	}, nil
}

func isDegenerate(f feature.Feature) bool {
	if len(f.PitchHz) == 0 || f.DurationS <= 0 {
		return true
	}
	for _, v := range f.Voiced {
		if v {
			return false
		}
	}
	return true
}

func degenerateReport() Report {
	return Report{
		OverallScore:   neutralScore,
		PitchScore:     neutralScore,
		TimingScore:    neutralScore,
		DynamicsScore:  neutralScore,
		SectionScores:  []SectionScore{},
		ProblemAreas:   []ProblemArea{},
		NoteComparison: []NoteComparison{},
	}
}

func buildSections(in []scoring.Section) []SectionScore {
	out := make([]SectionScore, len(in))
	for i, s := range in {
		out[i] = SectionScore{
			SectionIndex:    s.Index,
			StartTime:       s.StartS,
			EndTime:         s.EndS,
			OverallScore:    roundPtr1(s.OverallScore),
			PitchScore:      roundPtr1(s.PitchScore),
			TimingScore:     roundPtr1(s.TimingScore),
			DynamicsScore:   roundPtr1(s.DynamicsScore),
			RefNote:         s.RefNote,
			UserNote:        s.UserNote,
			NoteMatch:       s.NoteMatch,
			PitchClassMatch: s.PitchClassMatch,
			OctaveDiff:      s.OctaveDiff,
		}
	}
	return out
}

func buildAreas(in []problem.Area) []ProblemArea {
	out := make([]ProblemArea, len(in))
	for i, a := range in {
		pa := ProblemArea{
			StartTime:         a.StartS,
			EndTime:           a.EndS,
			Issues:            a.Issues,
			AvgPitchDevCents:  round4(a.AvgPitchDevCents),
			AvgTimingOffsetMs: round4(a.AvgTimingOffsetMs),
			AvgEnergyRatio:    round4(a.AvgEnergyRatio),
		}
		if a.HasRef {
			refStart, refEnd := a.RefStartS, a.RefEndS
			pa.RefStartTime = &refStart
			pa.RefEndTime = &refEnd
		}
		out[i] = pa
	}
	return out
}

func buildComparison(in []note.Pair) []NoteComparison {
	out := make([]NoteComparison, len(in))
	for i, p := range in {
		c := NoteComparison{
			NoteIndex:       i,
			RefNote:         p.RefNote.Name(),
			RefStartTime:    p.RefNote.StartS,
			RefEndTime:      p.RefNote.EndS,
			NoteMatch:       p.NoteMatch,
			PitchClassMatch: p.PitchClassMatch,
			OctaveDiff:      p.OctaveDiff,
			CentsOff:        roundPtr4(p.CentsOff),
			TimingOffsetMs:  roundPtr4(p.TimingOffsetMs),
		}
		if p.UserNote != nil {
			name := p.UserNote.Name()
			c.UserNote = &name
			start, end := p.UserNote.StartS, p.UserNote.EndS
			c.UserStartTime = &start
			c.UserEndTime = &end
		}
		out[i] = c
	}
	return out
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

func roundPtr1(x *float64) *float64 {
	if x == nil {
		return nil
	}
	v := round1(*x)
	return &v
}

func roundPtr4(x *float64) *float64 {
	if x == nil {
		return nil
	}
	v := round4(*x)
	return &v
}
