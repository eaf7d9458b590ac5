package chart

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAspectsScenarios(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		orb  float64
		want []Aspect
	}{
		{
			name: "exact sextile",
			a:    10, b: 70, orb: 5,
			want: []Aspect{{BodyA: "Sun", BodyB: "Moon", Separation: 60, Kind: Sextile}},
		},
		{
			name: "opposition across the short arc",
			a:    0, b: 179, orb: 3,
			want: []Aspect{{BodyA: "Sun", BodyB: "Moon", Separation: 179, Kind: Opposition}},
		},
		{
			name: "no aspect",
			a:    0, b: 40, orb: 5,
		},
		{
			name: "conjunction over zero",
			a:    359, b: 1, orb: 5,
			want: []Aspect{{BodyA: "Sun", BodyB: "Moon", Separation: 2, Kind: Conjunction}},
		},
		{
			name: "square at the edge of the orb",
			a:    100, b: 200, orb: 10,
			want: []Aspect{{BodyA: "Sun", BodyB: "Moon", Separation: 100, Kind: Square}},
		},
		{
			name: "trine",
			a:    15, b: 250, orb: 8,
			want: []Aspect{{BodyA: "Sun", BodyB: "Moon", Separation: 125, Kind: Trine}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := DetectAspects([]Body{{"Sun", tt.a}, {"Moon", tt.b}}, tt.orb)
			require.NoError(t, err)

			var got []Aspect
			for _, a := range set.Aspects {
				got = append(got, *a)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("aspects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDetectAspectsPriorityOnAmbiguousOrb(t *testing.T) {
	// 75 degrees is 15 away from both the sextile and the square.
	set, err := DetectAspects([]Body{{"Venus", 0}, {"Mars", 75}}, 20)
	require.NoError(t, err)
	require.Len(t, set.Aspects, 1)
	assert.Equal(t, Sextile, set.Aspects[0].Kind)

	// 30 degrees sits on the edge of conjunction and sextile with a 30 orb.
	set, err = DetectAspects([]Body{{"Venus", 0}, {"Mars", 30}}, 30)
	require.NoError(t, err)
	require.Len(t, set.Aspects, 1)
	assert.Equal(t, Conjunction, set.Aspects[0].Kind)
}

func TestDetectAspectsSymmetric(t *testing.T) {
	lons := []float64{0, 1, 33.3, 59, 90.5, 121, 179.9, 200, 299.5, 359.9}
	for _, a := range lons {
		for _, b := range lons {
			ab, err := DetectAspects([]Body{{"A", a}, {"B", b}}, 8)
			require.NoError(t, err)
			ba, err := DetectAspects([]Body{{"B", b}, {"A", a}}, 8)
			require.NoError(t, err)

			require.Equal(t, len(ab.Aspects), len(ba.Aspects), "%v/%v", a, b)
			if len(ab.Aspects) == 0 {
				continue
			}
			x, y := ab.Aspects[0], ba.Aspects[0]
			assert.Equal(t, x.Kind, y.Kind)
			assert.Equal(t, x.Separation, y.Separation)
			assert.Equal(t, "A", x.BodyA)
			assert.Equal(t, "B", y.BodyA)
		}
	}
}

func TestSeparationRange(t *testing.T) {
	for a := 0.0; a < 360; a += 7.3 {
		for b := 0.0; b < 360; b += 11.1 {
			s := Separation(a, b)
			if s < 0 || s > 180 {
				t.Fatalf("Separation(%v, %v) = %v, out of [0, 180]", a, b, s)
			}
		}
	}
	assert.Equal(t, 2.0, Separation(359, 1))
}

func TestDetectAspectsOrderAndIndex(t *testing.T) {
	bodies := []Body{
		{"Sun", 0},
		{"Moon", 90},
		{"Mercury", 2},
		{"Venus", 180},
		{"Mars", 300},
	}
	set, err := DetectAspects(bodies, 5)
	require.NoError(t, err)

	var pairs [][2]string
	for _, a := range set.Aspects {
		pairs = append(pairs, [2]string{a.BodyA, a.BodyB})
	}
	want := [][2]string{
		{"Sun", "Moon"},
		{"Sun", "Mercury"},
		{"Sun", "Venus"},
		{"Sun", "Mars"},
		{"Moon", "Mercury"},
		{"Moon", "Venus"},
		{"Mercury", "Venus"},
		{"Mercury", "Mars"},
		{"Venus", "Mars"},
	}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Fatalf("pair order mismatch (-want +got):\n%s", diff)
	}

	// The index shares pointers with the flat list.
	sun := set.For("Sun")
	require.Len(t, sun, 4)
	assert.Same(t, set.Aspects[0], sun[0])
	moon := set.For("Moon")
	require.Len(t, moon, 3)
	assert.Same(t, set.Aspects[0], moon[0])
	assert.Equal(t, "Sun", moon[0].Other("Moon"))
	assert.Len(t, set.For("Mars"), 3)
	assert.Empty(t, set.For("Jupiter"))
}

func TestDetectAspectsExcludesMissingBodies(t *testing.T) {
	bodies := []Body{
		{"Sun", 10},
		Missing("Moon"),
		{"Mercury", 70},
		{"Venus", 400},
	}
	set, err := DetectAspects(bodies, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Moon", "Venus"}, set.Excluded)
	require.Len(t, set.Aspects, 1)
	assert.Equal(t, "Mercury", set.Aspects[0].BodyB)
}

func TestDetectAspectsRejectsBadOrb(t *testing.T) {
	for _, orb := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := DetectAspects([]Body{{"Sun", 0}}, orb)
		assert.ErrorIs(t, err, ErrInvalidOrb)
	}
}

func TestDetectAspectsIdempotent(t *testing.T) {
	bodies := []Body{{"Sun", 12}, {"Moon", 135}, {"Mars", 190}}
	first, err := DetectAspects(bodies, 12)
	require.NoError(t, err)
	second, err := DetectAspects(bodies, 12)
	require.NoError(t, err)
	if diff := cmp.Diff(first.Aspects, second.Aspects); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}
