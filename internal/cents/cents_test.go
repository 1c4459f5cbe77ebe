package cents_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/choirmind/vocalcore/internal/cents"
)

func TestOf_Unison(t *testing.T) {
	require.InDelta(t, 0.0, cents.Of(440.0, 440.0), 1e-9)
}

func TestOf_OctaveUp(t *testing.T) {
	require.InDelta(t, 1200.0, cents.Of(880.0, 440.0), 1e-9)
}

func TestOf_OctaveDown(t *testing.T) {
	require.InDelta(t, -1200.0, cents.Of(220.0, 440.0), 1e-9)
}

func TestOf_Semitone(t *testing.T) {
	// A4 (440) to A#4 (440*2^(1/12)) is exactly 100 cents.
	require.InDelta(t, 100.0, cents.Of(440.0*1.0594630943592953, 440.0), 1e-6)
}

func TestFold_WithinRange(t *testing.T) {
	require.InDelta(t, 50.0, cents.Fold(50.0), 1e-9)
	require.InDelta(t, -50.0, cents.Fold(-50.0), 1e-9)
}

func TestFold_UpperBoundary(t *testing.T) {
	require.InDelta(t, 600.0, cents.Fold(600.0), 1e-9)
}

func TestFold_WrapsDownFromOutsideRange(t *testing.T) {
	require.InDelta(t, -500.0, cents.Fold(700.0), 1e-9)
}

func TestFold_MultipleOctaves(t *testing.T) {
	require.InDelta(t, 100.0, cents.Fold(100.0+1200.0*3), 1e-9)
	require.InDelta(t, 100.0, cents.Fold(100.0-1200.0*2), 1e-9)
}

func TestFold_Zero(t *testing.T) {
	require.InDelta(t, 0.0, cents.Fold(0.0), 1e-9)
}

func TestOfFolded_OctaveCollapsesToZero(t *testing.T) {
	require.InDelta(t, 0.0, cents.OfFolded(880.0, 440.0), 1e-6)
}

func TestOfFolded_MatchesRawWithinOctave(t *testing.T) {
	raw := cents.Of(466.16, 440.0) // A4 -> A#4, under 600c
	require.InDelta(t, raw, cents.OfFolded(466.16, 440.0), 1e-6)
}
