package chart

import (
	"fmt"
	"math"
)

// HouseCount is the number of houses in every supported house system.
const HouseCount = 12

// tilingTolerance absorbs floating point drift when consecutive cusps are
// compared.
const tilingTolerance = 1e-6

// HouseCusp is the boundary of one house: it starts at Start and spans Size
// degrees, possibly wrapping past 360.
type HouseCusp struct {
	ID    int
	Start float64
	Size  float64
}

// End is the longitude where the house stops, reduced modulo 360.
func (h HouseCusp) End() float64 {
	return math.Mod(h.Start+h.Size, 360)
}

// Contains uses the half-open [Start, End) convention, so a longitude on a
// boundary belongs to the house that starts there.
func (h HouseCusp) Contains(lon float64) bool {
	end := h.End()
	if h.Start <= end {
		return lon >= h.Start && lon < end
	}
	return lon >= h.Start || lon < end
}

// HouseSet is a validated set of twelve cusps.
type HouseSet struct {
	cusps []HouseCusp
}

// NewHouseSet checks that the cusps tile the circle exactly once.
func NewHouseSet(cusps []HouseCusp) (*HouseSet, error) {
	if len(cusps) != HouseCount {
		return nil, fmt.Errorf("%w: got %d cusps, want %d", ErrMalformedHouseSet, len(cusps), HouseCount)
	}
	var total float64
	for i, c := range cusps {
		if c.ID != i+1 {
			return nil, fmt.Errorf("%w: cusp %d has id %d", ErrMalformedHouseSet, i+1, c.ID)
		}
		if math.IsNaN(c.Start) || c.Start < 0 || c.Start >= 360 {
			return nil, fmt.Errorf("%w: house %d starts at %v", ErrMalformedHouseSet, c.ID, c.Start)
		}
		if math.IsNaN(c.Size) || c.Size <= 0 || c.Size >= 360 {
			return nil, fmt.Errorf("%w: house %d has size %v", ErrMalformedHouseSet, c.ID, c.Size)
		}
		total += c.Size

		next := cusps[(i+1)%HouseCount]
		if gap := angularDistance(c.End(), next.Start); gap > tilingTolerance {
			return nil, fmt.Errorf("%w: house %d ends at %.6f but house %d starts at %.6f",
				ErrMalformedHouseSet, c.ID, c.End(), next.ID, next.Start)
		}
	}
	if math.Abs(total-360) > tilingTolerance {
		return nil, fmt.Errorf("%w: sizes sum to %.6f", ErrMalformedHouseSet, total)
	}

	hs := &HouseSet{cusps: make([]HouseCusp, HouseCount)}
	copy(hs.cusps, cusps)
	return hs, nil
}

// Cusps returns a copy of the cusps in house order.
func (hs *HouseSet) Cusps() []HouseCusp {
	out := make([]HouseCusp, len(hs.cusps))
	copy(out, hs.cusps)
	return out
}

// Locate returns the id of the first house, in cusp order, containing lon.
func (hs *HouseSet) Locate(lon float64) (int, error) {
	if !validLongitude(lon) {
		return 0, fmt.Errorf("longitude %v: %w", lon, ErrMissingBodyData)
	}
	lon = normalize(lon)
	for _, c := range hs.cusps {
		if c.Contains(lon) {
			return c.ID, nil
		}
	}
	return 0, fmt.Errorf("longitude %.6f: %w", lon, ErrNoHouseMatch)
}

// LocateHouse validates the cusps and locates lon in one call.
func LocateHouse(cusps []HouseCusp, lon float64) (int, error) {
	hs, err := NewHouseSet(cusps)
	if err != nil {
		return 0, err
	}
	return hs.Locate(lon)
}

// angularDistance is the shortest arc between two longitudes, in [0, 180].
func angularDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	d = math.Mod(d, 360)
	return math.Min(d, 360-d)
}
