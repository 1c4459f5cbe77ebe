/*
Package note segments a pitch contour into discrete note events and pairs
reference notes to user notes by time (spec §4.9). It is independent of the
DTW alignment path: extraction and pairing both run directly over the
Feature records.
*/
package note

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/choirmind/vocalcore/internal/calib"
	"github.com/choirmind/vocalcore/internal/cents"
	"github.com/choirmind/vocalcore/internal/feature"
)

var classNames = [12]string{"Do", "Do#", "Re", "Re#", "Mi", "Fa", "Fa#", "Sol", "Sol#", "La", "La#", "Si"}

// Note is one segmented note event: a contiguous span of voiced frames with
// a stable pitch, named against a 12-tone equal-tempered grid (A4 = 440Hz
// by default, per calib.Table.A4Hz).
type Note struct {
	StartS   float64
	EndS     float64
	HzMedian float64
	Class    string // e.g. "Do", "Do#", ..., "Si"
	Octave   int
}

// Name returns the solfège class plus octave, e.g. "La4".
func (n Note) Name() string {
	return n.Class + strconv.Itoa(n.Octave)
}

// ClassAndOctave maps hz to the nearest 12-TET note, with a4Hz as the
// reference pitch for MIDI 69.
func ClassAndOctave(hz, a4Hz float64) (class string, octave int) {
	midi := math.Round(69.0 + 12.0*math.Log2(hz/a4Hz))
	floorDiv := math.Floor(midi / 12.0)
	classIndex := int(midi - floorDiv*12.0)
	return classNames[classIndex], int(floorDiv) - 1
}

type candidate struct {
	start float64
	hz    []float64
	times []float64
}

/*
Extract walks f's pitch stream frame by frame, grouping consecutive voiced
frames into notes (spec §4.9). A note boundary is forced by an unvoiced
frame, a pitch jump of more than cal.NoteJumpCents cents from the note's
running median, or an onset/energy-dip cue once the note already spans at
least cal.NoteMinDurationS. Notes shorter than cal.NoteMinDurationS are
dropped.
*/
func Extract(f feature.Feature, cal calib.Table) []Note {
	onsetFrame := nearestFrameFlags(f.PitchTimes, f.OnsetTimes, cal.NoteOnsetToleranceS)
	dipFrame := nearestFrameFlags(f.PitchTimes, energyDipTimes(f, cal), cal.NoteDipToleranceS)

	var notes []Note
	var cur *candidate

	finalize := func(endS float64) {
		if cur == nil {
			return
		}
		if endS-cur.start >= cal.NoteMinDurationS {
			medianHz := median(cur.hz)
			class, octave := ClassAndOctave(medianHz, cal.A4Hz)
			notes = append(notes, Note{
				StartS:   cur.start,
				EndS:     endS,
				HzMedian: medianHz,
				Class:    class,
				Octave:   octave,
			})
		}
		cur = nil
	}

	for i, t := range f.PitchTimes {
		hz, voiced := f.HzAt(i)
		if !voiced {
			if cur != nil {
				finalize(cur.times[len(cur.times)-1])
			}
			continue
		}

		if cur == nil {
			cur = &candidate{start: t, hz: []float64{hz}, times: []float64{t}}
			continue
		}

		runningMedian := median(cur.hz)
		jump := math.Abs(cents.Of(hz, runningMedian)) > cal.NoteJumpCents

		durSoFar := cur.times[len(cur.times)-1] - cur.start
		boundary := jump ||
			(onsetFrame[i] && durSoFar >= cal.NoteMinDurationS) ||
			(dipFrame[i] && durSoFar >= cal.NoteMinDurationS)

		if boundary {
			finalize(cur.times[len(cur.times)-1])
			cur = &candidate{start: t, hz: []float64{hz}, times: []float64{t}}
			continue
		}

		cur.hz = append(cur.hz, hz)
		cur.times = append(cur.times, t)
	}
	if cur != nil {
		finalize(cur.times[len(cur.times)-1])
	}

	return notes
}

// energyDipTimes returns the RMS-grid times at local minima where
// rms[i] < cal.NoteDipDropFrac*rms[i-1] and rms[i+1] > cal.NoteDipRiseFrac*rms[i].
func energyDipTimes(f feature.Feature, cal calib.Table) []float64 {
	var dips []float64
	for i := 1; i+1 < f.NumRMSFrames(); i++ {
		if f.RMSValues[i] < cal.NoteDipDropFrac*f.RMSValues[i-1] &&
			f.RMSValues[i+1] > cal.NoteDipRiseFrac*f.RMSValues[i] {
			dips = append(dips, f.RMSTimes[i])
		}
	}
	return dips
}

// nearestFrameFlags marks, for each entry in markTimes, the nearest index
// into frameTimes if it falls within tolerance, returning a bool slice the
// length of frameTimes.
func nearestFrameFlags(frameTimes, markTimes []float64, tolerance float64) []bool {
	flags := make([]bool, len(frameTimes))
	if len(frameTimes) == 0 {
		return flags
	}
	for _, mt := range markTimes {
		j := sort.SearchFloat64s(frameTimes, mt)
		best := -1
		bestDiff := math.Inf(1)
		for _, cand := range []int{j - 1, j} {
			if cand < 0 || cand >= len(frameTimes) {
				continue
			}
			d := math.Abs(frameTimes[cand] - mt)
			if d < bestDiff {
				bestDiff = d
				best = cand
			}
		}
		if best >= 0 && bestDiff <= tolerance {
			flags[best] = true
		}
	}
	return flags
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// --- Pairing (spec §4.9 "Pairing") --------------------------------------

// Pair is one reference note matched (or not) to a user note.
type Pair struct {
	RefNote  Note
	UserNote *Note // nil if the reference note went unmatched

	NoteMatch       bool
	PitchClassMatch *bool
	OctaveDiff      *int
	CentsOff        *float64
	TimingOffsetMs  *float64
}

/*
PairNotes matches each reference note, in order, to the nearest-in-time
unconsumed user note within ±cal.NotePairSearchWindow seconds, examining at
most cal.NotePairLookahead candidates ahead of a monotonically advancing
cursor. Unmatched reference notes produce a Pair with a nil UserNote.
*/
func PairNotes(refNotes, userNotes []Note, cal calib.Table) []Pair {
	pairs := make([]Pair, 0, len(refNotes))
	cursor := 0

	for _, ref := range refNotes {
		limit := cursor + cal.NotePairLookahead
		if limit > len(userNotes) {
			limit = len(userNotes)
		}

		bestIdx := -1
		bestDelta := math.Inf(1)
		for j := cursor; j < limit; j++ {
			delta := math.Abs(userNotes[j].StartS - ref.StartS)
			if delta > cal.NotePairSearchWindow {
				continue
			}
			if delta < bestDelta {
				bestDelta = delta
				bestIdx = j
			}
		}

		if bestIdx == -1 {
			pairs = append(pairs, Pair{RefNote: ref})
			continue
		}

		u := userNotes[bestIdx]
		centsOff := cents.Of(u.HzMedian, ref.HzMedian)
		noteMatch := math.Abs(centsOff) <= cal.NoteMatchCents
		pitchClassMatch := noteMatch || u.Class == ref.Class
		octaveDiff := u.Octave - ref.Octave
		timingMs := (u.StartS - ref.StartS) * 1000.0

		pairs = append(pairs, Pair{
			RefNote:         ref,
			UserNote:        &u,
			NoteMatch:       noteMatch,
			PitchClassMatch: &pitchClassMatch,
			OctaveDiff:      &octaveDiff,
			CentsOff:        &centsOff,
			TimingOffsetMs:  &timingMs,
		})
		cursor = bestIdx + 1
	}

	return pairs
}
