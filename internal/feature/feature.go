/*
Package feature defines the Feature record consumed by the alignment and
scoring pipeline, along with its JSON wire format and entry validation.

Feature is produced upstream by pitch/onset/RMS extraction over raw audio —
out of scope here (spec §1) — and is treated as an immutable, borrowed input
by every downstream component.
*/
package feature

import (
	"encoding/json"
	"fmt"
	"math"
)

/*
Feature is an immutable time-series record for one recording (either the
user's or the reference's). Voicing is tracked as a parallel boolean mask
rather than a NaN sentinel in PitchHz (spec §9 "Unvoiced sentinel" design
note): PitchHz[i] is meaningful only where Voiced[i] is true.
*/
type Feature struct {
	PitchHz    []float64 // Hz; meaningful only where Voiced[i] is true
	Voiced     []bool    // same length as PitchHz
	PitchTimes []float64 // seconds, strictly increasing, same length as PitchHz

	OnsetTimes []float64 // seconds, independent of the pitch grid

	RMSValues []float64 // in [0,1], pre-normalized by peak
	RMSTimes  []float64 // seconds, strictly increasing, same length as RMSValues

	DurationS float64
}

// NumPitchFrames returns len(PitchHz).
func (f Feature) NumPitchFrames() int { return len(f.PitchHz) }

// NumRMSFrames returns len(RMSValues).
func (f Feature) NumRMSFrames() int { return len(f.RMSValues) }

// HzAt returns (hz, true) if frame i is voiced, or (0, false) otherwise.
func (f Feature) HzAt(i int) (float64, bool) {
	if i < 0 || i >= len(f.PitchHz) || !f.Voiced[i] {
		return 0, false
	}
	return f.PitchHz[i], true
}

// NearestRMSIndex returns the index into RMSValues/RMSTimes whose RMSTimes
// entry is closest to t. Panics if RMSTimes is empty — callers must check
// NumRMSFrames() first.
func (f Feature) NearestRMSIndex(t float64) int {
	best := 0
	bestDiff := math.Abs(f.RMSTimes[0] - t)
	for i := 1; i < len(f.RMSTimes); i++ {
		d := math.Abs(f.RMSTimes[i] - t)
		if d < bestDiff {
			bestDiff = d
			best = i
		}
	}
	return best
}

/*
InvalidFeatures reports that a Feature record violates one of the shape
invariants from spec §3: mismatched array lengths, non-monotonic time
arrays, an onset outside [0,duration], or a non-positive voiced Hz value.
*/
type InvalidFeatures struct {
	Which  string // "user" or "ref", set by the caller wrapping Validate
	Detail string
}

func (e *InvalidFeatures) Error() string {
	if e.Which == "" {
		return fmt.Sprintf("invalid features: %s", e.Detail)
	}
	return fmt.Sprintf("invalid %s features: %s", e.Which, e.Detail)
}

// Validate checks f against the invariants of spec §3 and returns an
// *InvalidFeatures describing the first violation found, or nil.
func Validate(f Feature) error {
	if len(f.PitchHz) != len(f.PitchTimes) {
		return &InvalidFeatures{Detail: fmt.Sprintf(
			"pitch_values length %d != pitch_times length %d", len(f.PitchHz), len(f.PitchTimes))}
	}
	if len(f.PitchHz) != len(f.Voiced) {
		return &InvalidFeatures{Detail: fmt.Sprintf(
			"pitch_values length %d != voicing mask length %d", len(f.PitchHz), len(f.Voiced))}
	}
	if len(f.RMSValues) != len(f.RMSTimes) {
		return &InvalidFeatures{Detail: fmt.Sprintf(
			"rms_values length %d != rms_times length %d", len(f.RMSValues), len(f.RMSTimes))}
	}
	if f.DurationS < 0 || math.IsNaN(f.DurationS) || math.IsInf(f.DurationS, 0) {
		return &InvalidFeatures{Detail: fmt.Sprintf("duration_s is not a finite non-negative value: %v", f.DurationS)}
	}
	if !isStrictlyIncreasing(f.PitchTimes) {
		return &InvalidFeatures{Detail: "pitch_times is not strictly increasing"}
	}
	if !isStrictlyIncreasing(f.RMSTimes) {
		return &InvalidFeatures{Detail: "rms_times is not strictly increasing"}
	}
	if len(f.PitchTimes) > 0 && f.PitchTimes[len(f.PitchTimes)-1] > f.DurationS {
		return &InvalidFeatures{Detail: fmt.Sprintf(
			"last pitch_times %v exceeds duration_s %v", f.PitchTimes[len(f.PitchTimes)-1], f.DurationS)}
	}
	for _, o := range f.OnsetTimes {
		if o < 0 || o > f.DurationS {
			return &InvalidFeatures{Detail: fmt.Sprintf("onset_time %v outside [0, duration_s=%v]", o, f.DurationS)}
		}
	}
	for i, voiced := range f.Voiced {
		if voiced && (f.PitchHz[i] <= 0 || math.IsNaN(f.PitchHz[i]) || math.IsInf(f.PitchHz[i], 0)) {
			return &InvalidFeatures{Detail: fmt.Sprintf("voiced frame %d has non-positive Hz value %v", i, f.PitchHz[i])}
		}
	}
	for _, r := range f.RMSValues {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return &InvalidFeatures{Detail: fmt.Sprintf("rms value is not finite: %v", r)}
		}
	}
	return nil
}

func isStrictlyIncreasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return false
		}
	}
	return true
}

// --- JSON wire format (spec §6) ---------------------------------------

type wireFeature struct {
	PitchValues []*float64 `json:"pitch_values"`
	PitchTimes  []float64  `json:"pitch_times"`
	OnsetTimes  []float64  `json:"onset_times"`
	RMSValues   []float64  `json:"rms_values"`
	RMSTimes    []float64  `json:"rms_times"`
	DurationS   float64    `json:"duration_s"`
}

// MarshalJSON emits the wire format from spec §6, with null denoting an
// unvoiced pitch frame.
func (f Feature) MarshalJSON() ([]byte, error) {
	w := wireFeature{
		PitchValues: make([]*float64, len(f.PitchHz)),
		PitchTimes:  f.PitchTimes,
		OnsetTimes:  f.OnsetTimes,
		RMSValues:   f.RMSValues,
		RMSTimes:    f.RMSTimes,
		DurationS:   f.DurationS,
	}
	for i := range f.PitchHz {
		if f.Voiced[i] {
			v := f.PitchHz[i]
			w.PitchValues[i] = &v
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the wire format from spec §6, translating null
// pitch_values entries into an unvoiced frame with PitchHz[i] == 0.
func (f *Feature) UnmarshalJSON(data []byte) error {
	var w wireFeature
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Feature{
		PitchHz:    make([]float64, len(w.PitchValues)),
		Voiced:     make([]bool, len(w.PitchValues)),
		PitchTimes: w.PitchTimes,
		OnsetTimes: w.OnsetTimes,
		RMSValues:  w.RMSValues,
		RMSTimes:   w.RMSTimes,
		DurationS:  w.DurationS,
	}
	for i, v := range w.PitchValues {
		if v != nil {
			out.PitchHz[i] = *v
			out.Voiced[i] = true
		}
	}
	*f = out
	return nil
}

// ToJSON serializes f to a compact JSON string, mirroring the original
// service's features_to_json helper.
func ToJSON(f Feature) (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FromJSON parses a Feature from a JSON string, mirroring the original
// service's features_from_json helper.
func FromJSON(s string) (Feature, error) {
	var f Feature
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return Feature{}, err
	}
	return f, nil
}
