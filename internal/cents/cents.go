/*
Package cents holds the small pitch-distance math shared by the onset
detector, the deviation computer, and the note extractor: converting a
frequency ratio to cents, and octave-folding a cents value into (-600,+600]
so that octave-ambiguous pitch-tracker output and octave-shifted singing
don't penalize a comparison.
*/
package cents

import "math"

// Of returns the signed distance in cents from hzB to hzA: 1200*log2(a/b).
// Both frequencies must be strictly positive.
func Of(hzA, hzB float64) float64 {
	return 1200.0 * math.Log2(hzA/hzB)
}

// Fold reduces c modulo one octave into the half-open-on-the-left interval
// (-600, +600], so that c and c+1200*k fold to the same value for any
// integer k.
func Fold(c float64) float64 {
	m := math.Mod(c+600.0, 1200.0)
	if m < 0 {
		m += 1200.0
	}
	v := m - 600.0
	if v <= -600.0 {
		v = 600.0
	}
	return v
}

// OfFolded is a convenience for Fold(Of(hzA, hzB)).
func OfFolded(hzA, hzB float64) float64 {
	return Fold(Of(hzA, hzB))
}
