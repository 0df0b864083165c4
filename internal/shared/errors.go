package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Search and resolution errors
	ErrNoTracks = fmt.Errorf("no valid tracks found")

	// Persistence errors
	ErrRunNotFound = fmt.Errorf("run not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingColumns  = fmt.Errorf("missing track/artist columns")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
