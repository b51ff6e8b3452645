package collection

import "fmt"

// InputKind identifies an event submitted to a Controller.
type InputKind int

const (
	InputRefresh InputKind = iota
	InputChangeQuery
	InputLoadNextPage
	InputRetryNextPage
	InputPreload
)

func (k InputKind) String() string {
	switch k {
	case InputRefresh:
		return "refresh"
	case InputChangeQuery:
		return "change_query"
	case InputLoadNextPage:
		return "load_next_page"
	case InputRetryNextPage:
		return "retry_next_page"
	case InputPreload:
		return "preload"
	default:
		return "unknown"
	}
}

// Input is an event for the reducer. Query is set for InputChangeQuery and
// Index for InputPreload.
type Input[Q comparable] struct {
	Kind  InputKind
	Query Q
	Index int
}

func (in Input[Q]) String() string {
	switch in.Kind {
	case InputChangeQuery:
		return fmt.Sprintf("%s(%v)", in.Kind, in.Query)
	case InputPreload:
		return fmt.Sprintf("%s(%d)", in.Kind, in.Index)
	default:
		return in.Kind.String()
	}
}

// RefreshInput forces a refetch from offset 0.
func RefreshInput[Q comparable]() Input[Q] { return Input[Q]{Kind: InputRefresh} }

// ChangeQueryInput replaces the active query.
func ChangeQueryInput[Q comparable](query Q) Input[Q] {
	return Input[Q]{Kind: InputChangeQuery, Query: query}
}

// LoadNextPageInput requests the page after the last successful one.
func LoadNextPageInput[Q comparable]() Input[Q] { return Input[Q]{Kind: InputLoadNextPage} }

// RetryNextPageInput re-issues a failed page load.
func RetryNextPageInput[Q comparable]() Input[Q] { return Input[Q]{Kind: InputRetryNextPage} }

// PreloadInput tells the controller the consumer is showing index.
func PreloadInput[Q comparable](index int) Input[Q] {
	return Input[Q]{Kind: InputPreload, Index: index}
}
