package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testCalc() Calculator {
	return New(
		[]float64{10, 25, 40, 70, 100, 200, 0},
		[]float64{0.1, 0.5, 1, 2, 4, 8, 0},
	)
}

func TestPrice_KnownOperands(t *testing.T) {
	c := testCalc()

	require.Equal(t, 100, c.Price(10, 0.1))
	require.Equal(t, 5000, c.Price(25, 2))
	require.Equal(t, 160000, c.Price(200, 8))
}

func TestPrice_UnknownVolumeUsesTableMean(t *testing.T) {
	c := testCalc()

	// mean volume = 15.6/7, the zero band stays in the divisor
	require.Equal(t, 2229, c.Price(10, 0))
}

func TestPrice_UnknownWeightUsesTableMean(t *testing.T) {
	c := testCalc()

	// mean weight = 445/7
	require.Equal(t, 636, c.Price(0, 0.1))
}

func TestPrice_BothUnknownMultipliesMeans(t *testing.T) {
	c := testCalc()

	// (445/7) * (15.6/7) * 100, the means multiply directly
	require.Equal(t, 14167, c.Price(0, 0))
}

func TestPrice_EmptyTables(t *testing.T) {
	c := New(nil, nil)

	require.Equal(t, 0, c.Price(0, 0))
	require.Equal(t, 0, c.Price(10, 0))
}
