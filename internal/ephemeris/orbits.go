package ephemeris

import "math"

// elements are mean orbital elements as linear functions of the day number.
type elements struct {
	N, i, w, a, e, M func(d float64) float64
}

func lin(c0, c1 float64) func(float64) float64 {
	return func(d float64) float64 { return c0 + c1*d }
}

var orbits = map[string]elements{
	Sun: {
		N: lin(0, 0), i: lin(0, 0), w: lin(282.9404, 4.70935e-5),
		a: lin(1, 0), e: lin(0.016709, -1.151e-9), M: lin(356.0470, 0.9856002585),
	},
	Moon: {
		N: lin(125.1228, -0.0529538083), i: lin(5.1454, 0), w: lin(318.0634, 0.1643573223),
		a: lin(60.2666, 0), e: lin(0.054900, 0), M: lin(115.3654, 13.0649929509),
	},
	Mercury: {
		N: lin(48.3313, 3.24587e-5), i: lin(7.0047, 5.00e-8), w: lin(29.1241, 1.01444e-5),
		a: lin(0.387098, 0), e: lin(0.205635, 5.59e-10), M: lin(168.6562, 4.0923344368),
	},
	Venus: {
		N: lin(76.6799, 2.46590e-5), i: lin(3.3946, 2.75e-8), w: lin(54.8910, 1.38374e-5),
		a: lin(0.723330, 0), e: lin(0.006773, -1.302e-9), M: lin(48.0052, 1.6021302244),
	},
	Mars: {
		N: lin(49.5574, 2.11081e-5), i: lin(1.8497, -1.78e-8), w: lin(286.5016, 2.92961e-5),
		a: lin(1.523688, 0), e: lin(0.093405, 2.516e-9), M: lin(18.6021, 0.5240207766),
	},
	Jupiter: {
		N: lin(100.4542, 2.76854e-5), i: lin(1.3030, -1.557e-7), w: lin(273.8777, 1.64505e-5),
		a: lin(5.20256, 0), e: lin(0.048498, 4.469e-9), M: lin(19.8950, 0.0830853001),
	},
	Saturn: {
		N: lin(113.6634, 2.38980e-5), i: lin(2.4886, -1.081e-7), w: lin(339.3939, 2.97661e-5),
		a: lin(9.55475, 0), e: lin(0.055546, -9.499e-9), M: lin(316.9670, 0.0334442282),
	},
	Uranus: {
		N: lin(74.0005, 1.3978e-5), i: lin(0.7733, 1.9e-8), w: lin(96.6612, 3.0565e-5),
		a: lin(19.18171, -1.55e-8), e: lin(0.047318, 7.45e-9), M: lin(142.5905, 0.011725806),
	},
	Neptune: {
		N: lin(131.7806, 3.0173e-5), i: lin(1.7700, -2.55e-7), w: lin(272.8461, -6.027e-6),
		a: lin(30.05826, 3.313e-8), e: lin(0.008606, 2.15e-9), M: lin(260.2471, 0.005995147),
	},
}

// Supported reports whether Compute knows the named body.
func Supported(name string) bool {
	_, ok := orbits[name]
	return ok
}

// eccentricAnomaly solves Kepler's equation by Newton iteration. M and the
// result are in degrees.
func eccentricAnomaly(M, e float64) float64 {
	const deg = 180 / math.Pi
	E := M + e*deg*sind(M)*(1+e*cosd(M))
	for n := 0; n < 20; n++ {
		next := E - (E-e*deg*sind(E)-M)/(1-e*cosd(E))
		if math.Abs(next-E) < 1e-7 {
			return next
		}
		E = next
	}
	return E
}

// orbitPosition returns rectangular ecliptic coordinates of a body in its
// own orbit, referred to the body it orbits.
func orbitPosition(el elements, d float64) (x, y, z float64) {
	N, i, w := el.N(d), el.i(d), el.w(d)
	a, e, M := el.a(d), el.e(d), rev(el.M(d))

	E := eccentricAnomaly(M, e)
	xv := a * (cosd(E) - e)
	yv := a * math.Sqrt(1-e*e) * sind(E)
	v := atan2d(yv, xv)
	r := math.Hypot(xv, yv)

	x = r * (cosd(N)*cosd(v+w) - sind(N)*sind(v+w)*cosd(i))
	y = r * (sind(N)*cosd(v+w) + cosd(N)*sind(v+w)*cosd(i))
	z = r * sind(v+w) * sind(i)
	return x, y, z
}

// sunPosition is the geocentric rectangular position of the Sun.
func sunPosition(d float64) (x, y float64) {
	el := orbits[Sun]
	w, e, M := el.w(d), el.e(d), rev(el.M(d))
	E := eccentricAnomaly(M, e)
	xv := cosd(E) - e
	yv := math.Sqrt(1-e*e) * sind(E)
	v := atan2d(yv, xv)
	r := math.Hypot(xv, yv)
	lon := v + w
	return r * cosd(lon), r * sind(lon)
}

// Longitude is the geocentric ecliptic longitude of the named body at day
// number d, in [0, 360).
func Longitude(name string, d float64) (float64, bool) {
	switch name {
	case Sun:
		x, y := sunPosition(d)
		return rev(atan2d(y, x)), true
	case Moon:
		return moonLongitude(d), true
	}
	el, ok := orbits[name]
	if !ok {
		return math.NaN(), false
	}
	xh, yh, _ := orbitPosition(el, d)
	xs, ys := sunPosition(d)
	return rev(atan2d(yh+ys, xh+xs)), true
}

func moonLongitude(d float64) float64 {
	x, y, _ := orbitPosition(orbits[Moon], d)
	lon := atan2d(y, x)

	sun, moon := orbits[Sun], orbits[Moon]
	Ms := rev(sun.M(d))
	Mm := rev(moon.M(d))
	Nm := rev(moon.N(d))
	Ls := Ms + sun.w(d)
	Lm := Mm + moon.w(d) + Nm
	D := Lm - Ls
	F := Lm - Nm

	lon += -1.274*sind(Mm-2*D) +
		0.658*sind(2*D) -
		0.186*sind(Ms) -
		0.059*sind(2*Mm-2*D) -
		0.057*sind(Mm-2*D+Ms) +
		0.053*sind(Mm+2*D) +
		0.046*sind(2*D-Ms) +
		0.041*sind(Mm-Ms) -
		0.035*sind(D) -
		0.031*sind(Mm+Ms) -
		0.015*sind(2*F-2*D) +
		0.011*sind(Mm-4*D)
	return rev(lon)
}
