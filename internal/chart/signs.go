package chart

import (
	"fmt"
	"math"
)

type Sign int

const (
	Aries Sign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

var signNames = [...]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

func (s Sign) String() string {
	if s < Aries || s > Pisces {
		return fmt.Sprintf("Sign(%d)", int(s))
	}
	return signNames[s]
}

// SignOf returns the zodiac sign of a longitude and the degree inside it.
func SignOf(lon float64) (Sign, float64) {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	s := Sign(int(lon / 30))
	return s, lon - float64(s)*30
}
