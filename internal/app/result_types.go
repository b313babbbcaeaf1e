package app

import (
	"fmt"

	"weighbridge-station/internal/core"
)

// WeighResult reports a completed weighing action. Print and export run
// after the docket is committed; their failures are reported here and never
// roll the docket back.
type WeighResult struct {
	Docket   *core.Docket
	Warnings []core.ValidationIssue

	PrintError  string
	ExportError string
}

// ValidationError blocks a save: at least one issue of severity Error or
// Critical. Warnings travel in WeighResult instead.
type ValidationError struct {
	Issues []core.ValidationIssue
}

func (e *ValidationError) Error() string {
	for _, i := range e.Issues {
		if i.Blocking() {
			return fmt.Sprintf("validation failed: %s (%s)", i.Message, i.Code)
		}
	}
	return "validation failed"
}

// InProgressError blocks a non-TwoWeights action because the vehicle has an
// open docket from the last 24 hours that the operator has not acknowledged.
type InProgressError struct {
	Docket *core.Docket
}

func (e *InProgressError) Error() string {
	return fmt.Sprintf("vehicle has an open docket %d from %s; resolve or acknowledge it first",
		e.Docket.ID, e.Docket.CreatedAt.Format("2006-01-02 15:04"))
}
