// Package empty provides empty state messages for the restaurant list.
package empty

import (
	"fmt"
	"strings"
)

// Message represents an empty state message with optional hints.
type Message struct {
	Title   string
	Body    string
	Hints   []string
	Command string // suggested command to run
}

// String renders the message as plain lines.
func (m Message) String() string {
	var b strings.Builder
	b.WriteString(m.Title)
	if m.Body != "" {
		b.WriteString("\n" + m.Body)
	}
	for _, h := range m.Hints {
		b.WriteString("\n  • " + h)
	}
	if m.Command != "" {
		b.WriteString("\n  $ " + m.Command)
	}
	return b.String()
}

// NoResults returns the empty state for a search the server had nothing for.
func NoResults(term string) Message {
	msg := Message{
		Title: "No restaurants found",
		Hints: []string{
			"Widen the search radius with --radius",
			"Try a different location with --lat and --lng",
		},
	}
	if term != "" {
		msg.Body = fmt.Sprintf("Nothing matched %q nearby.", term)
	} else {
		msg.Body = "Nothing nearby."
	}
	return msg
}

// FilterNoMatch returns the empty state when fetched results were all
// filtered out.
func FilterNoMatch(fetched int, morePages bool) Message {
	msg := Message{
		Title: "No matches",
		Body:  fmt.Sprintf("None of the %d restaurants loaded so far match your filters.", fetched),
		Hints: []string{"Relax a filter (open now, rating, price, cuisine)"},
	}
	if morePages {
		msg.Hints = append(msg.Hints, "More results exist; widen the search to fetch different ones")
	}
	return msg
}

// NoFavourites returns the empty state for an empty favourites list.
func NoFavourites() Message {
	return Message{
		Title:   "No favourites yet",
		Body:    "Mark restaurants as favourites to find them again quickly.",
		Command: "lunchbox favourite add <restaurant-id>",
	}
}

// LoadFailed returns the state shown when the first page could not be loaded.
func LoadFailed(err error) Message {
	return Message{
		Title: "Couldn't load restaurants",
		Body:  err.Error(),
		Hints: []string{"Press r to retry"},
	}
}

// AuthRequired returns the empty state when no API key is configured.
func AuthRequired() Message {
	return Message{
		Title:   "API key required",
		Body:    "Searching needs an API key for the restaurant search service.",
		Command: "lunchbox auth login --key <api-key>",
	}
}
