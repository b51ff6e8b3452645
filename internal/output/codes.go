// Package output renders command results and structured errors as JSON,
// YAML, styled tables or plain values.
package output

// Exit codes.
const (
	ExitOK          = 0 // Success
	ExitUsage       = 1 // Invalid arguments or flags
	ExitNotFound    = 2 // Resource not found
	ExitAuth        = 3 // Missing or rejected API key
	ExitForbidden   = 4 // Access denied
	ExitRateLimit   = 5 // Rate limited (429)
	ExitNetwork     = 6 // Connection/DNS/timeout error
	ExitAPI         = 7 // Server returned error
	ExitStorage     = 8 // Local favourites or config could not be read or written
	ExitUnavailable = 9 // Circuit open after repeated failures
)

// Error codes for the JSON envelope.
const (
	CodeUsage       = "usage"
	CodeNotFound    = "not_found"
	CodeAuth        = "auth_required"
	CodeForbidden   = "forbidden"
	CodeRateLimit   = "rate_limit"
	CodeNetwork     = "network"
	CodeAPI         = "api_error"
	CodeStorage     = "storage"
	CodeUnavailable = "unavailable"
)

var exitCodes = map[string]int{
	CodeUsage:       ExitUsage,
	CodeNotFound:    ExitNotFound,
	CodeAuth:        ExitAuth,
	CodeForbidden:   ExitForbidden,
	CodeRateLimit:   ExitRateLimit,
	CodeNetwork:     ExitNetwork,
	CodeAPI:         ExitAPI,
	CodeStorage:     ExitStorage,
	CodeUnavailable: ExitUnavailable,
}

// ExitCodeFor returns the exit code for an error code. Unknown codes exit
// as API errors.
func ExitCodeFor(code string) int {
	if c, ok := exitCodes[code]; ok {
		return c
	}
	return ExitAPI
}
