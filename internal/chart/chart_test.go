package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildComplete(t *testing.T) {
	bodies := []Body{
		{"Sun", 195.5},
		{"Moon", 105},
		{"Mercury", 200},
	}
	c, err := Build(bodies, equalHouses(0), 6)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, c.Status())
	require.Len(t, c.Placements, 3)

	sun, ok := c.Placement("Sun")
	require.True(t, ok)
	assert.Equal(t, Libra, sun.Sign)
	assert.InDelta(t, 15.5, sun.Degree, 1e-9)
	assert.Equal(t, 7, sun.House)
	require.Len(t, sun.Aspects, 2)
	assert.Equal(t, Square, sun.Aspects[0].Kind)
	assert.Equal(t, Conjunction, sun.Aspects[1].Kind)

	moon, _ := c.Placement("Moon")
	assert.Equal(t, Cancer, moon.Sign)
	assert.Equal(t, 4, moon.House)
	assert.True(t, moon.Resolved())
}

func TestBuildPartial(t *testing.T) {
	bodies := []Body{{"Sun", 10}, Missing("Moon"), {"Venus", 70}}
	c, err := Build(bodies, equalHouses(0), 5)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, c.Status())

	moon, ok := c.Placement("Moon")
	require.True(t, ok)
	assert.ErrorIs(t, moon.Err, ErrMissingBodyData)
	assert.Zero(t, moon.House)
	assert.Equal(t, []string{"Moon"}, c.Aspects.Excluded)

	venus, _ := c.Placement("Venus")
	require.Len(t, venus.Aspects, 1)
	assert.Equal(t, Sextile, venus.Aspects[0].Kind)
}

func TestBuildAbortsOnMalformedHouses(t *testing.T) {
	cusps := equalHouses(0)
	cusps[6].Start = 200
	_, err := Build([]Body{{"Sun", 1}}, cusps, 5)
	assert.ErrorIs(t, err, ErrMalformedHouseSet)

	_, err = Build([]Body{{"Sun", 1}}, equalHouses(0), -2)
	assert.ErrorIs(t, err, ErrInvalidOrb)
}

func TestSignOf(t *testing.T) {
	tests := []struct {
		lon    float64
		sign   Sign
		degree float64
	}{
		{0, Aries, 0},
		{29.5, Aries, 29.5},
		{30, Taurus, 0},
		{195, Libra, 15},
		{359, Pisces, 29},
		{360, Aries, 0},
	}
	for _, tt := range tests {
		s, d := SignOf(tt.lon)
		assert.Equal(t, tt.sign, s, "lon %v", tt.lon)
		assert.InDelta(t, tt.degree, d, 1e-9, "lon %v", tt.lon)
	}
	assert.Equal(t, "Libra", Libra.String())
}
