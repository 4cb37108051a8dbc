package geo

import (
	"math"
	"testing"

	"github.com/gilby125/fly-or-drive/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKmMilesRoundTrip(t *testing.T) {
	for _, x := range []float64{0, 1e-6, 0.5, 1, 42.195, 1609.344, 3944, 20015.1, 1e9} {
		got := MilesToKm(KmToMiles(x))
		assertRelative(t, x, got, 1e-9)
	}
	assert.InDelta(t, 1.0, KmToMiles(KmPerMile), 1e-12)
	assert.InDelta(t, 160.934, MilesToKm(100), 1e-9)
}

func TestGallonsLitersRoundTrip(t *testing.T) {
	for _, x := range []float64{0, 0.25, 1, 13.2, 1e6} {
		assertRelative(t, x, LitersToGallons(GallonsToLiters(x)), 1e-9)
	}
	assert.InDelta(t, 3.78541, GallonsToLiters(1), 1e-12)
}

func TestMPGLPer100KmRoundTrip(t *testing.T) {
	lp100, err := MPGToLPer100Km(30)
	require.NoError(t, err)
	assert.InDelta(t, 7.8405, lp100, 0.0001)

	mpg, err := LPer100KmToMPG(7.8405)
	require.NoError(t, err)
	assert.InDelta(t, 30, mpg, 0.01)

	for _, x := range []float64{0.1, 4.7, 7.5, 25, 120} {
		a, err := LPer100KmToMPG(x)
		require.NoError(t, err)
		b, err := MPGToLPer100Km(a)
		require.NoError(t, err)
		assertRelative(t, x, b, 1e-9)
	}
}

func TestFuelEconomy_RejectsOutOfDomain(t *testing.T) {
	for _, x := range []float64{0, -3, math.Inf(1), math.NaN()} {
		_, err := MPGToLPer100Km(x)
		assert.True(t, apperr.IsInvalidArgument(err), "mpg=%v", x)

		_, err = LPer100KmToMPG(x)
		assert.True(t, apperr.IsInvalidArgument(err), "l/100km=%v", x)
	}
}

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit("")
	require.NoError(t, err)
	assert.Equal(t, Kilometers, u)

	u, err = ParseUnit("mi")
	require.NoError(t, err)
	assert.Equal(t, Miles, u)
	assert.True(t, u.Valid())

	_, err = ParseUnit("nm")
	assert.True(t, apperr.IsInvalidArgument(err))
	assert.False(t, Unit("nm").Valid())
}

func assertRelative(t *testing.T, want, got, eps float64) {
	t.Helper()
	if want == 0 {
		assert.Equal(t, 0.0, got)
		return
	}
	assert.LessOrEqual(t, math.Abs(got-want)/math.Abs(want), eps, "want %v got %v", want, got)
}
