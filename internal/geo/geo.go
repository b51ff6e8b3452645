// Package geo locates the user for restaurant searches.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
	"github.com/lunchbox/lunchbox-cli/internal/version"
)

// ErrNoLocation is returned when no locator could determine a location.
var ErrNoLocation = errors.New("location unknown")

// Locator determines the user's location.
type Locator interface {
	Locate(ctx context.Context) (restaurant.Location, error)
}

// Static always returns the same location. A zero location is treated as
// unset.
type Static restaurant.Location

// Locate returns the fixed location.
func (s Static) Locate(context.Context) (restaurant.Location, error) {
	loc := restaurant.Location(s)
	if loc.IsZero() {
		return restaurant.Location{}, ErrNoLocation
	}
	if err := loc.Validate(); err != nil {
		return restaurant.Location{}, err
	}
	return loc, nil
}

// DefaultLookupURL is an IP geolocation endpoint returning JSON with
// latitude and longitude fields.
const DefaultLookupURL = "https://ipapi.co/json/"

const lookupTimeout = 5 * time.Second

// IPLocator estimates the location from the public IP address.
type IPLocator struct {
	URL  string
	HTTP *http.Client
}

// NewIPLocator returns an IPLocator for url, or DefaultLookupURL when empty.
func NewIPLocator(url string) *IPLocator {
	if strings.TrimSpace(url) == "" {
		url = DefaultLookupURL
	}
	return &IPLocator{URL: url, HTTP: &http.Client{Timeout: lookupTimeout}}
}

type ipLookup struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
}

// Locate queries the lookup service.
func (l *IPLocator) Locate(ctx context.Context) (restaurant.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return restaurant.Location{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	hc := l.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return restaurant.Location{}, fmt.Errorf("ip lookup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return restaurant.Location{}, fmt.Errorf("ip lookup returned status %d", resp.StatusCode)
	}

	var body ipLookup
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return restaurant.Location{}, fmt.Errorf("decode ip lookup: %w", err)
	}

	lat, lng := firstSet(body.Latitude, body.Lat), firstSet(body.Longitude, body.Lon)
	if lat == nil || lng == nil {
		return restaurant.Location{}, fmt.Errorf("ip lookup: %w", ErrNoLocation)
	}
	loc := restaurant.Location{Latitude: *lat, Longitude: *lng}
	if err := loc.Validate(); err != nil {
		return restaurant.Location{}, fmt.Errorf("ip lookup: %w", err)
	}
	return loc, nil
}

func firstSet(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// Chain tries each locator in order and returns the first success.
type Chain []Locator

// Locate returns the first location found. If every locator fails the
// errors are joined.
func (c Chain) Locate(ctx context.Context) (restaurant.Location, error) {
	var errs []error
	for _, l := range c {
		if l == nil {
			continue
		}
		loc, err := l.Locate(ctx)
		if err == nil {
			return loc, nil
		}
		if ctx.Err() != nil {
			return restaurant.Location{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return restaurant.Location{}, ErrNoLocation
	}
	return restaurant.Location{}, errors.Join(errs...)
}
