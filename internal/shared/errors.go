package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAuthDenied       = fmt.Errorf("authorization denied")
	ErrAuthTimeout      = fmt.Errorf("authorization timed out")
	ErrAuthExpired      = fmt.Errorf("authentication expired")

	// Playback and API errors
	ErrNoActiveDevice  = fmt.Errorf("no active playback device")
	ErrRateLimited     = fmt.Errorf("rate limited")
	ErrUnreachable     = fmt.Errorf("service unreachable")
	ErrCommandRejected = fmt.Errorf("playback command rejected")
	ErrAPIRequest      = fmt.Errorf("API request failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
