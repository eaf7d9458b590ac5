package ephemeris

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/chart"
)

type HouseSystem string

const (
	Porphyry  HouseSystem = "porphyry"
	Equal     HouseSystem = "equal"
	WholeSign HouseSystem = "whole_sign"
)

var ErrHouseSystem = errors.New("unknown house system")

// ParseHouseSystem accepts the names used in the config file.
func ParseHouseSystem(s string) (HouseSystem, error) {
	switch hs := HouseSystem(s); hs {
	case Porphyry, Equal, WholeSign:
		return hs, nil
	case "":
		return Porphyry, nil
	}
	return "", fmt.Errorf("%w: %q", ErrHouseSystem, s)
}

// localSiderealTime in degrees for an east longitude.
func localSiderealTime(t time.Time, lon float64) float64 {
	jd := julianDay(t)
	gmst := 280.46061837 + 360.98564736629*(jd-2451545.0)
	return rev(gmst + lon)
}

// Angles returns the Ascendant and Midheaven longitudes.
func Angles(t time.Time, lat, lon float64) (asc, mc float64) {
	return anglesAt(localSiderealTime(t, lon), obliquity(dayNumber(t)), lat)
}

func anglesAt(ramc, eps, lat float64) (asc, mc float64) {
	mc = rev(atan2d(sind(ramc), cosd(ramc)*cosd(eps)))
	asc = rev(atan2d(cosd(ramc), -(sind(ramc)*cosd(eps) + tand(lat)*sind(eps))))
	return asc, mc
}

// Cusps lays out the twelve houses from the chart angles.
func (hs HouseSystem) Cusps(asc, mc float64) ([]chart.HouseCusp, error) {
	switch hs {
	case Equal:
		return uniformCusps(asc), nil
	case WholeSign:
		return uniformCusps(math.Floor(asc/30) * 30), nil
	case Porphyry, "":
		return porphyryCusps(asc, mc)
	}
	return nil, fmt.Errorf("%w: %q", ErrHouseSystem, string(hs))
}

func uniformCusps(start float64) []chart.HouseCusp {
	cusps := make([]chart.HouseCusp, chart.HouseCount)
	for i := range cusps {
		cusps[i] = chart.HouseCusp{ID: i + 1, Start: rev(start + float64(i)*30), Size: 30}
	}
	return cusps
}

// porphyryCusps trisects each quadrant between the angles. Houses 1-3 run
// from the Ascendant to the IC, 4-6 to the Descendant, 7-9 to the Midheaven
// and 10-12 back to the Ascendant.
func porphyryCusps(asc, mc float64) ([]chart.HouseCusp, error) {
	ic := rev(mc + 180)
	lower := rev(ic - asc)
	if lower <= 0 || lower >= 180 {
		return nil, fmt.Errorf("%w: degenerate quadrants (asc %.3f, mc %.3f)", ErrLatitude, asc, mc)
	}
	upper := 180 - lower
	sizes := [4]float64{lower / 3, upper / 3, lower / 3, upper / 3}

	cusps := make([]chart.HouseCusp, chart.HouseCount)
	start := asc
	for i := range cusps {
		size := sizes[i/3]
		cusps[i] = chart.HouseCusp{ID: i + 1, Start: start, Size: size}
		start = cusps[i].End()
	}
	return cusps, nil
}
