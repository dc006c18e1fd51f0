package pyramid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/epi-age-comparison/internal/agegroup"
	"github.com/i474232898/epi-age-comparison/internal/epidemic"
)

func TestBuild(t *testing.T) {
	c := epidemic.Comparison{
		Region:           "CHFL",
		Deaths:           epidemic.SeriesDiff{"80+": 500, "0 - 9": 10, "Unbekannt": 3},
		Hospitalizations: epidemic.SeriesDiff{"80+": 1000, "50 - 59": 200},
		Symptoms:         epidemic.SeriesDiff{"18 - 44": 270, "unknown": 5, "0 - 1": 4},
	}

	p, err := Build(agegroup.Default(), c)
	require.NoError(t, err)
	assert.Equal(t, "CHFL", p.Region)

	assert.Equal(t, []Bar{
		{Series: epidemic.Deaths, Label: "0 - 9", Low: 0, Height: 10, Count: 10, Rate: -1},
		{Series: epidemic.Hospitalizations, Label: "50 - 59", Low: 50, Height: 10, Count: 200, Rate: -20},
		{Series: epidemic.Deaths, Label: "80+", Low: 80, Height: 10, Count: 500, Rate: -50},
		{Series: epidemic.Hospitalizations, Label: "80+", Low: 80, Height: 10, Count: 1000, Rate: -100, Offset: -50},
		{Series: epidemic.Deaths, Label: "Unbekannt", Low: 90, Height: 10, Count: 3, Rate: -0.3, Unknown: true},
	}, p.Left)

	assert.Equal(t, []Bar{
		{Series: epidemic.Symptoms, Label: "0 - 1", Low: 0, Height: 2, Count: 4, Rate: 2},
		{Series: epidemic.Symptoms, Label: "18 - 44", Low: 18, Height: 27, Count: 270, Rate: 10},
		{Series: epidemic.Symptoms, Label: "unknown", Low: 90, Height: 10, Count: 5, Rate: 0.5, Unknown: true},
	}, p.Right)
}

func TestBuildNegativeChangeFlipsSide(t *testing.T) {
	c := epidemic.Comparison{Symptoms: epidemic.SeriesDiff{"75+": -30}}

	p, err := Build(agegroup.Default(), c)
	require.NoError(t, err)
	require.Len(t, p.Right, 1)
	assert.Equal(t, 75, p.Right[0].Low)
	assert.Equal(t, 15, p.Right[0].Height)
	assert.Equal(t, -2.0, p.Right[0].Rate)
}

func TestBuildRejectsUnknownLabel(t *testing.T) {
	c := epidemic.Comparison{Deaths: epidemic.SeriesDiff{"100+": 1}}

	_, err := Build(agegroup.Default(), c)

	var recErr *agegroup.ReconciliationError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, "100+", recErr.Label)
}

func TestBuildEmpty(t *testing.T) {
	p, err := Build(agegroup.Default(), epidemic.Comparison{Region: "CH"})
	require.NoError(t, err)
	assert.Empty(t, p.Left)
	assert.Empty(t, p.Right)
}
