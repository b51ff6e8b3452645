package api

import (
	"strings"

	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
)

type searchResponse struct {
	Total      int        `json:"total"`
	Businesses []business `json:"businesses"`
}

type business struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Rating      float64    `json:"rating"`
	ReviewCount int        `json:"review_count"`
	Price       string     `json:"price"`
	Distance    float64    `json:"distance"`
	IsClosed    bool       `json:"is_closed"`
	Phone       string     `json:"display_phone"`
	URL         string     `json:"url"`
	Categories  []category `json:"categories"`
	Location    struct {
		DisplayAddress []string `json:"display_address"`
	} `json:"location"`
	Coordinates struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates"`
	Hours []struct {
		IsOpenNow bool `json:"is_open_now"`
	} `json:"hours"`
}

type category struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

func (b business) toRestaurant() restaurant.Restaurant {
	cuisines := make([]string, 0, len(b.Categories))
	for _, c := range b.Categories {
		if c.Title != "" {
			cuisines = append(cuisines, c.Title)
		}
	}

	// Search results omit hours; fall back to "not permanently closed".
	open := !b.IsClosed
	if len(b.Hours) > 0 {
		open = b.Hours[0].IsOpenNow
	}

	return restaurant.Restaurant{
		ID:             b.ID,
		Name:           b.Name,
		Cuisines:       cuisines,
		Rating:         b.Rating,
		ReviewCount:    b.ReviewCount,
		PriceLevel:     strings.Count(b.Price, "$"),
		DistanceMeters: b.Distance,
		IsOpen:         open,
		Address:        strings.Join(b.Location.DisplayAddress, ", "),
		Phone:          b.Phone,
		URL:            b.URL,
		Coordinates: restaurant.Location{
			Latitude:  b.Coordinates.Latitude,
			Longitude: b.Coordinates.Longitude,
		},
	}
}
