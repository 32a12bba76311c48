package cleanup

import (
	"errors"
)

var (
	// ErrValidation marks input rejected before any API call.
	ErrValidation = errors.New("invalid input")
	// ErrInUse marks a resource another resource still depends on.
	ErrInUse = errors.New("resource in use")
)

// Status is the result of one delete request.
type Status string

const (
	StatusDeleted     Status = "deleted"
	StatusAlreadyGone Status = "already_gone"
	StatusFailed      Status = "failed"
	StatusSkipped     Status = "skipped"
)

// Outcome reports what happened to one requested resource.
type Outcome struct {
	ID     string
	Status Status
	Err    error
}

// Failures returns the outcomes with StatusFailed.
func Failures(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// JoinErrors joins the errors of every failed outcome, or returns nil.
func JoinErrors(outcomes []Outcome) error {
	var errs []error
	for _, o := range Failures(outcomes) {
		errs = append(errs, o.Err)
	}
	return errors.Join(errs...)
}

// Count tallies outcomes by status.
func Count(outcomes []Outcome) map[Status]int {
	counts := make(map[Status]int, 4)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return counts
}
