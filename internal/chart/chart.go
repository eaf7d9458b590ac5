// Package chart holds the natal chart computations that run on top of raw
// ephemeris output: which house a body sits in and which classical aspects
// the tracked bodies form with each other.
package chart

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrMissingBodyData   = errors.New("body has no usable longitude")
	ErrMalformedHouseSet = errors.New("house cusps do not tile the circle")
	ErrNoHouseMatch      = errors.New("longitude is outside every house")
	ErrInvalidOrb        = errors.New("orb must be a finite non-negative number of degrees")
)

// Body is a named point on the ecliptic at the moment of birth.
type Body struct {
	Name      string
	Longitude float64
}

// Missing returns a body whose longitude was not supplied by the ephemeris.
func Missing(name string) Body {
	return Body{Name: name, Longitude: math.NaN()}
}

// Valid reports whether the longitude can take part in house lookup and
// aspect pairing. 360 is accepted and read as 0.
func (b Body) Valid() bool {
	return validLongitude(b.Longitude)
}

func validLongitude(lon float64) bool {
	return !math.IsNaN(lon) && !math.IsInf(lon, 0) && lon >= 0 && lon <= 360
}

func normalize(lon float64) float64 {
	if lon == 360 {
		return 0
	}
	return lon
}

// Status tells the caller whether every placement could be resolved.
type Status int

const (
	StatusComplete Status = iota
	StatusPartial
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusPartial:
		return "partial"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Placement is the per-body outcome of a chart: its sign, its house and the
// aspects it takes part in. Err is set when the body or its house could not
// be resolved; House is 0 in that case.
type Placement struct {
	Body    Body
	Sign    Sign
	Degree  float64
	House   int
	Aspects []*Aspect
	Err     error
}

// Resolved reports whether the placement has both a position and a house.
func (p Placement) Resolved() bool { return p.Err == nil }

// Chart is the derived view of one chart computation.
type Chart struct {
	Orb        float64
	Houses     *HouseSet
	Placements []Placement
	Aspects    *AspectSet
}

// Build locates every body in its house and detects the aspects between the
// valid ones. Malformed houses and invalid orbs abort the build; missing
// bodies and unmatched longitudes only degrade the affected placement.
func Build(bodies []Body, cusps []HouseCusp, orb float64) (*Chart, error) {
	houses, err := NewHouseSet(cusps)
	if err != nil {
		return nil, err
	}
	aspects, err := DetectAspects(bodies, orb)
	if err != nil {
		return nil, err
	}

	c := &Chart{
		Orb:        orb,
		Houses:     houses,
		Placements: make([]Placement, 0, len(bodies)),
		Aspects:    aspects,
	}
	for _, b := range bodies {
		p := Placement{Body: b}
		if !b.Valid() {
			p.Err = fmt.Errorf("%s: %w", b.Name, ErrMissingBodyData)
			c.Placements = append(c.Placements, p)
			continue
		}
		p.Sign, p.Degree = SignOf(b.Longitude)
		p.Aspects = aspects.For(b.Name)
		house, err := houses.Locate(b.Longitude)
		if err != nil {
			p.Err = fmt.Errorf("%s: %w", b.Name, err)
		}
		p.House = house
		c.Placements = append(c.Placements, p)
	}
	return c, nil
}

// Status is StatusPartial when any placement carries an error.
func (c *Chart) Status() Status {
	for _, p := range c.Placements {
		if p.Err != nil {
			return StatusPartial
		}
	}
	return StatusComplete
}

// Placement returns the placement of the named body.
func (c *Chart) Placement(name string) (Placement, bool) {
	for _, p := range c.Placements {
		if p.Body.Name == name {
			return p, true
		}
	}
	return Placement{}, false
}
