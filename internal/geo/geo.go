// Package geo resolves a city name to coordinates and an IANA timezone using
// a Nominatim search endpoint and a timeapi.io compatible timezone endpoint.
package geo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/go-resty/resty/v2"
)

var (
	ErrPlaceNotFound = errors.New("place not found")
	ErrTimezone      = errors.New("timezone lookup failed")
)

// Place is a geocoded birth place.
type Place struct {
	Name     string
	Lat      float64
	Lon      float64
	Timezone string
}

// Location loads the place's timezone.
func (p Place) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimezone, err)
	}
	return loc, nil
}

type Options struct {
	NominatimURL string
	TimezoneURL  string
	UserAgent    string
	Timeout      time.Duration
	// Language is sent as accept-language to Nominatim.
	Language string
}

type Client struct {
	search   *resty.Client
	timezone *resty.Client
	language string
}

func New(opts Options) *Client {
	if opts.Language == "" {
		opts.Language = "ru"
	}
	return &Client{
		search: resty.New().
			SetBaseURL(opts.NominatimURL).
			SetTimeout(opts.Timeout).
			SetHeader("User-Agent", opts.UserAgent).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond),
		timezone: resty.New().
			SetBaseURL(opts.TimezoneURL).
			SetTimeout(opts.Timeout).
			SetHeader("User-Agent", opts.UserAgent).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond),
		language: opts.Language,
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type timezoneResult struct {
	TimeZone string `json:"timeZone"`
}

// Locate geocodes city and resolves its timezone.
func (c *Client) Locate(ctx context.Context, city string) (Place, error) {
	var found []searchResult
	resp, err := c.search.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":               city,
			"format":          "json",
			"limit":           "1",
			"accept-language": c.language,
		}).
		SetResult(&found).
		Get("/search")
	if err != nil {
		return Place{}, fmt.Errorf("geocode %q: %w", city, err)
	}
	if resp.IsError() {
		return Place{}, fmt.Errorf("geocode %q: unexpected status %s", city, resp.Status())
	}
	if len(found) == 0 {
		return Place{}, fmt.Errorf("%w: %q", ErrPlaceNotFound, city)
	}

	place := Place{Name: found[0].DisplayName}
	if place.Lat, err = strconv.ParseFloat(found[0].Lat, 64); err != nil {
		return Place{}, fmt.Errorf("geocode %q: bad latitude %q", city, found[0].Lat)
	}
	if place.Lon, err = strconv.ParseFloat(found[0].Lon, 64); err != nil {
		return Place{}, fmt.Errorf("geocode %q: bad longitude %q", city, found[0].Lon)
	}

	tz, err := c.Timezone(ctx, place.Lat, place.Lon)
	if err != nil {
		return Place{}, err
	}
	place.Timezone = tz
	return place, nil
}

// Timezone returns the IANA timezone name at the given coordinates.
func (c *Client) Timezone(ctx context.Context, lat, lon float64) (string, error) {
	var out timezoneResult
	resp, err := c.timezone.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":  strconv.FormatFloat(lat, 'f', 6, 64),
			"longitude": strconv.FormatFloat(lon, 'f', 6, 64),
		}).
		SetResult(&out).
		Get("/api/TimeZone/coordinate")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTimezone, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: unexpected status %s", ErrTimezone, resp.Status())
	}
	if out.TimeZone == "" {
		return "", fmt.Errorf("%w: empty response", ErrTimezone)
	}
	if _, err := time.LoadLocation(out.TimeZone); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTimezone, err)
	}
	return out.TimeZone, nil
}
