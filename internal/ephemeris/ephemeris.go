// Package ephemeris computes low precision geocentric ecliptic longitudes of
// the Sun, Moon and planets, plus the angles and house cusps of a chart.
//
// Positions come from mean orbital elements referred to the equinox of date,
// solved with Kepler's equation; the Moon gets its principal periodic terms.
// Accuracy is within a fraction of a degree for the inner bodies over the
// 20th and 21st centuries, which is enough for sign, house and aspect work.
package ephemeris

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/chart"
)

// Body names understood by Compute.
const (
	Sun     = "Sun"
	Moon    = "Moon"
	Mercury = "Mercury"
	Venus   = "Venus"
	Mars    = "Mars"
	Jupiter = "Jupiter"
	Saturn  = "Saturn"
	Uranus  = "Uranus"
	Neptune = "Neptune"
)

// DefaultBodies is the classical five tracked by the bot unless configured
// otherwise.
var DefaultBodies = []string{Sun, Moon, Mercury, Venus, Mars}

var ErrLatitude = errors.New("latitude out of range for house computation")

// Positions is everything a chart needs from the sky at one instant.
type Positions struct {
	Time      time.Time
	Bodies    []chart.Body
	Ascendant float64
	Midheaven float64
	Cusps     []chart.HouseCusp
}

// Compute returns the longitudes of the requested bodies, in request order,
// and the house cusps for the given place. Unknown body names come back as
// missing bodies so the chart can still be drawn without them.
func Compute(t time.Time, lat, lon float64, system HouseSystem, bodies []string) (*Positions, error) {
	if math.IsNaN(lat) || math.Abs(lat) > 89 {
		return nil, fmt.Errorf("%w: %v", ErrLatitude, lat)
	}
	d := dayNumber(t)

	pos := &Positions{Time: t, Bodies: make([]chart.Body, 0, len(bodies))}
	for _, name := range bodies {
		l, ok := Longitude(name, d)
		if !ok {
			pos.Bodies = append(pos.Bodies, chart.Missing(name))
			continue
		}
		pos.Bodies = append(pos.Bodies, chart.Body{Name: name, Longitude: l})
	}

	pos.Ascendant, pos.Midheaven = Angles(t, lat, lon)
	cusps, err := system.Cusps(pos.Ascendant, pos.Midheaven)
	if err != nil {
		return nil, err
	}
	pos.Cusps = cusps
	return pos, nil
}

// dayNumber counts days, with fraction, from 1999-12-31 0h UT.
func dayNumber(t time.Time) float64 {
	return julianDay(t) - 2451543.5
}

func julianDay(t time.Time) float64 {
	return float64(t.UTC().UnixNano())/86400e9 + 2440587.5
}

// obliquity of the ecliptic in degrees.
func obliquity(d float64) float64 {
	return 23.4393 - 3.563e-7*d
}

func rev(x float64) float64 {
	x = math.Mod(x, 360)
	if x < 0 {
		x += 360
	}
	return x
}

func sind(x float64) float64 { return math.Sin(x * math.Pi / 180) }
func cosd(x float64) float64 { return math.Cos(x * math.Pi / 180) }
func tand(x float64) float64 { return math.Tan(x * math.Pi / 180) }

func atan2d(y, x float64) float64 { return math.Atan2(y, x) * 180 / math.Pi }
