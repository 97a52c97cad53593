package dashboard

import (
	"errors"
	"fmt"
)

// Stage names a step of the analysis pipeline
type Stage string

const (
	StageValidate Stage = "validate"
	StageScrape   Stage = "scrape"
	StageSuggest  Stage = "suggest"
	StagePersist  Stage = "persist"
	StageLoad     Stage = "load"
)

var (
	// ErrInvalidURL is returned for empty, relative or non-http(s) URLs
	ErrInvalidURL = errors.New("a valid http(s) URL is required")
	// ErrCompanyRequired is returned when a company must be given but was not
	ErrCompanyRequired = errors.New("company name is required")
)

// StageError records which pipeline stage failed
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the failed stage of err, or "" when err carries none
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
