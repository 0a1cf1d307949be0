package ics

import "fmt"

// InvalidFeedFormatError indicates a fetched payload that is not an ICS
// calendar at all (no VCALENDAR begin marker). It names the offending link and
// fails the whole source.
type InvalidFeedFormatError struct {
	Link string
}

func (e *InvalidFeedFormatError) Error() string {
	return fmt.Sprintf("invalid ics feed format from %s: missing BEGIN:VCALENDAR", e.Link)
}

// NormalizationError indicates a single event whose date fields could not be
// normalized. It fails only that task; the rest of the batch proceeds.
type NormalizationError struct {
	TaskID string
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("could not normalize task %s: field %s: %s", e.TaskID, e.Field, e.Reason)
}
