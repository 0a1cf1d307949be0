package model

import "time"

// Repository identifies the repo a commit belongs to.
type Repository struct {
	Owner       string
	Name        string
	FullName    string // "owner/name"
	ID          int64
	Description string
	Private     bool
	Fork        bool
}

// Commit is a canonical record of one fetched commit. Commits are immutable:
// the diff only ever adds or removes them, never updates.
type Commit struct {
	ID         string // sha
	Date       time.Time
	Message    string
	URL        string
	Repository Repository
}

// Mapping routes one source feed into a destination calendar pair.
// A task is routed to Calendar only if (Tag is empty or the task carries Tag)
// and the task carries none of IgnoredTags.
type Mapping struct {
	Link         string
	Calendar     string
	DoneCalendar string
	Tag          string
	IgnoredTags  []string
	Color        string
}

// SourceKey is the stable identifier a mapping's feed is linked under in
// destination event metadata.
func (m Mapping) SourceKey() string {
	return m.Link
}
