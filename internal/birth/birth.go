// Package birth parses the free-text birth data users send to the bot.
package birth

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrFormat = errors.New("expected \"DD.MM.YYYY HH:MM City\"")
	ErrDate   = errors.New("invalid birth date")
	ErrTime   = errors.New("invalid birth time")
	ErrCity   = errors.New("city is missing")
)

// Input is the parsed birth data, still without a timezone.
type Input struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	City   string
}

var (
	dmyPattern = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})[./-](\d{4})\s*,?\s+(\d{1,2})[:.](\d{2})\s*,?\s*(.*)$`)
	isoPattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\s*,?\s+(\d{1,2})[:.](\d{2})\s*,?\s*(.*)$`)
)

// Parse accepts "15.03.1990 14:30 Москва", "15/03/1990 14:30, Москва" and
// "1990-03-15 14:30 Москва". The city is whatever follows the time.
func Parse(text string) (Input, error) {
	text = strings.Join(strings.Fields(text), " ")

	var day, month, year, hour, minute, city string
	if m := isoPattern.FindStringSubmatch(text); m != nil {
		year, month, day, hour, minute, city = m[1], m[2], m[3], m[4], m[5], m[6]
	} else if m := dmyPattern.FindStringSubmatch(text); m != nil {
		day, month, year, hour, minute, city = m[1], m[2], m[3], m[4], m[5], m[6]
	} else {
		return Input{}, ErrFormat
	}

	in := Input{City: strings.Trim(city, " ,.")}
	in.Day, _ = strconv.Atoi(day)
	m, _ := strconv.Atoi(month)
	in.Month = time.Month(m)
	in.Year, _ = strconv.Atoi(year)
	in.Hour, _ = strconv.Atoi(hour)
	in.Minute, _ = strconv.Atoi(minute)

	if in.Year < 1800 || in.Year > 2100 || in.Month < time.January || in.Month > time.December ||
		in.Day < 1 || in.Day > daysIn(in.Month, in.Year) {
		return Input{}, fmt.Errorf("%w: %s.%s.%s", ErrDate, day, month, year)
	}
	if in.Hour > 23 || in.Minute > 59 {
		return Input{}, fmt.Errorf("%w: %s:%s", ErrTime, hour, minute)
	}
	if in.City == "" {
		return Input{}, ErrCity
	}
	return in, nil
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// In returns the birth instant as wall-clock time in loc.
func (in Input) In(loc *time.Location) time.Time {
	return time.Date(in.Year, in.Month, in.Day, in.Hour, in.Minute, 0, 0, loc)
}

// Date formats the date the way users type it.
func (in Input) Date() string {
	return fmt.Sprintf("%02d.%02d.%04d", in.Day, int(in.Month), in.Year)
}

// Clock formats the time of day as HH:MM.
func (in Input) Clock() string {
	return fmt.Sprintf("%02d:%02d", in.Hour, in.Minute)
}

func (in Input) String() string {
	return in.Date() + " " + in.Clock() + " " + in.City
}
