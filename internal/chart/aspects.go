package chart

import (
	"fmt"
	"math"
)

// AspectKind names a classical aspect.
type AspectKind int

const (
	Conjunction AspectKind = iota
	Sextile
	Square
	Trine
	Opposition
)

// aspectOrder is the priority in which reference angles are tried. With an
// orb wider than 30 degrees a separation can fall within reach of two
// angles; the earlier one wins.
var aspectOrder = []AspectKind{Conjunction, Sextile, Square, Trine, Opposition}

// Angle is the reference angle of the aspect in degrees.
func (k AspectKind) Angle() float64 {
	switch k {
	case Conjunction:
		return 0
	case Sextile:
		return 60
	case Square:
		return 90
	case Trine:
		return 120
	case Opposition:
		return 180
	}
	return math.NaN()
}

func (k AspectKind) String() string {
	switch k {
	case Conjunction:
		return "conjunction"
	case Sextile:
		return "sextile"
	case Square:
		return "square"
	case Trine:
		return "trine"
	case Opposition:
		return "opposition"
	}
	return fmt.Sprintf("AspectKind(%d)", int(k))
}

// Aspect is a named angular relationship between two distinct bodies.
// BodyA is the body that comes first in the input order.
type Aspect struct {
	BodyA      string
	BodyB      string
	Separation float64
	Kind       AspectKind
}

// Other returns the body on the other side of the aspect.
func (a *Aspect) Other(name string) string {
	if a.BodyA == name {
		return a.BodyB
	}
	return a.BodyA
}

// AspectSet is the result of DetectAspects.
type AspectSet struct {
	// Aspects in emission order: pair (i, j) with i < j over the input.
	Aspects []*Aspect
	// Excluded names the bodies left out of pairing because their
	// longitude was missing or out of range.
	Excluded []string

	byBody map[string][]*Aspect
}

// For lists the aspects the named body takes part in. The returned values
// are the same pointers held in Aspects.
func (s *AspectSet) For(name string) []*Aspect {
	return s.byBody[name]
}

// Separation is the minimal angular distance between two longitudes.
func Separation(a, b float64) float64 {
	raw := math.Abs(a - b)
	return math.Min(raw, 360-raw)
}

// Classify returns the first aspect kind whose reference angle lies within
// orb of sep.
func Classify(sep, orb float64) (AspectKind, bool) {
	for _, k := range aspectOrder {
		if math.Abs(sep-k.Angle()) <= orb {
			return k, true
		}
	}
	return 0, false
}

// DetectAspects pairs every valid body with every later one and records the
// aspects whose separation falls within orb of a reference angle.
func DetectAspects(bodies []Body, orb float64) (*AspectSet, error) {
	if math.IsNaN(orb) || math.IsInf(orb, 0) || orb < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrb, orb)
	}

	set := &AspectSet{byBody: make(map[string][]*Aspect)}
	valid := make([]Body, 0, len(bodies))
	for _, b := range bodies {
		if !b.Valid() {
			set.Excluded = append(set.Excluded, b.Name)
			continue
		}
		valid = append(valid, Body{Name: b.Name, Longitude: normalize(b.Longitude)})
	}

	for i := 0; i < len(valid); i++ {
		for j := i + 1; j < len(valid); j++ {
			a, b := valid[i], valid[j]
			sep := Separation(a.Longitude, b.Longitude)
			kind, ok := Classify(sep, orb)
			if !ok {
				continue
			}
			asp := &Aspect{BodyA: a.Name, BodyB: b.Name, Separation: sep, Kind: kind}
			set.Aspects = append(set.Aspects, asp)
			set.byBody[a.Name] = append(set.byBody[a.Name], asp)
			set.byBody[b.Name] = append(set.byBody[b.Name], asp)
		}
	}
	return set, nil
}
