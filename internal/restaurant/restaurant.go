// Package restaurant defines the restaurant search domain: the element and
// query types a collection.Controller is instantiated with, and the refresh,
// filter and preload strategies that tie them together.
package restaurant

import (
	"fmt"
	"math"
	"strings"
)

// Location is a point on the map in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// IsZero reports whether the location was never set.
func (l Location) IsZero() bool {
	return l.Latitude == 0 && l.Longitude == 0
}

// Validate checks the coordinates are in range.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", l.Latitude)
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", l.Longitude)
	}
	return nil
}

func (l Location) String() string {
	return fmt.Sprintf("%.4f,%.4f", l.Latitude, l.Longitude)
}

// Restaurant is one search result.
type Restaurant struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Cuisines       []string `json:"cuisines,omitempty" yaml:"cuisines,omitempty"`
	Rating         float64  `json:"rating" yaml:"rating"`
	ReviewCount    int      `json:"review_count" yaml:"review_count"`
	PriceLevel     int      `json:"price_level,omitempty" yaml:"price_level,omitempty"` // 1-4, 0 when unknown
	DistanceMeters float64  `json:"distance_meters" yaml:"distance_meters"`
	IsOpen         bool     `json:"is_open" yaml:"is_open"`
	Address        string   `json:"address,omitempty" yaml:"address,omitempty"`
	Phone          string   `json:"phone,omitempty" yaml:"phone,omitempty"`
	URL            string   `json:"url,omitempty" yaml:"url,omitempty"`
	Coordinates    Location `json:"coordinates" yaml:"coordinates"`
}

// Price renders the price level as dollar signs.
func (r Restaurant) Price() string {
	if r.PriceLevel <= 0 {
		return ""
	}
	return strings.Repeat("$", min(r.PriceLevel, MaxPriceLevel))
}

// ServesCuisine reports whether any of the restaurant's cuisines matches c,
// ignoring case.
func (r Restaurant) ServesCuisine(c string) bool {
	for _, have := range r.Cuisines {
		if strings.EqualFold(have, c) {
			return true
		}
	}
	return false
}

// MaxPriceLevel is the most expensive price level the search API reports.
const MaxPriceLevel = 4
