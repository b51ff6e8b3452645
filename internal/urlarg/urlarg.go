// Package urlarg extracts restaurant IDs from URLs pasted as command
// arguments, so a browser link works wherever an ID does.
package urlarg

import (
	"net/url"
	"strings"
)

// Parsed represents components extracted from a restaurant URL.
type Parsed struct {
	Host string
	Kind string // "biz" for web pages, "api" for API resource URLs
	ID   string
}

// IsURL checks if the input looks like a restaurant URL.
func IsURL(input string) bool {
	return Parse(input) != nil
}

// Parse extracts the restaurant ID from a URL.
// Returns nil if the input is not a recognised restaurant URL.
//
// Supported URL patterns:
//   - https://www.yelp.com/biz/{id}
//   - https://m.yelp.co.uk/biz/{id}?osq=ramen
//   - https://api.yelp.com/v3/businesses/{id}
func Parse(input string) *Parsed {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return nil
	}
	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return nil
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(segments) == 2 && segments[0] == "biz" && isYelpHost(u.Hostname()):
		return parsed(u.Host, "biz", segments[1])
	case len(segments) == 3 && segments[0] == "v3" && segments[1] == "businesses":
		return parsed(u.Host, "api", segments[2])
	}
	return nil
}

func parsed(host, kind, id string) *Parsed {
	if id == "" || id == "search" {
		return nil
	}
	return &Parsed{Host: host, Kind: kind, ID: id}
}

// isYelpHost matches yelp.com and its country domains with or without a
// subdomain.
func isYelpHost(host string) bool {
	host = strings.ToLower(host)
	for _, label := range strings.Split(host, ".") {
		if label == "yelp" {
			return true
		}
	}
	return false
}

// ExtractID extracts the restaurant ID from an argument.
// If the argument is a restaurant URL, extracts the ID from its path.
// Otherwise, returns the argument as-is (assumed to be an ID).
func ExtractID(arg string) string {
	if p := Parse(arg); p != nil {
		return p.ID
	}
	return arg
}

// ExtractIDs extracts IDs from multiple arguments, handling URLs.
func ExtractIDs(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = ExtractID(arg)
	}
	return result
}
