package sync

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/lucasvtiradentes/gcal-sync/pkg/model"
)

// CommitDeletion removes a commit event no longer inside the fetch window.
type CommitDeletion struct {
	CommitID string
	EventID  string
}

// CommitActions is the mutation set for the commits calendar. Commits are
// immutable, so there is no update path.
type CommitActions struct {
	ToAdd    []model.Commit
	ToDelete []CommitDeletion
}

// CommitOptions tune how commits are filtered and rendered.
type CommitOptions struct {
	IgnoreForks       bool
	ParseCommitEmojis bool
}

var emojiShortcode = regexp.MustCompile(`:[a-z0-9_+-]+:\s*`)

// DiffCommits computes additions and deletions against the commits-calendar
// snapshot. Fetched commits must be oldest-first so calendar insertion order
// follows commit history.
//
// Deletion is bounded by the fetch horizon: only events whose commit date is
// at or after the oldest fetched commit are authoritative; older events are
// never treated as deleted. An empty fetch window deletes nothing.
func DiffCommits(commits []model.Commit, snapshot []*calendar.Event, opts CommitOptions) *CommitActions {
	actions := &CommitActions{}

	if opts.IgnoreForks {
		kept := commits[:0:0]
		for _, c := range commits {
			if !c.Repository.Fork {
				kept = append(kept, c)
			}
		}
		commits = kept
	}

	fetched := map[string]bool{}
	for _, c := range commits {
		fetched[c.ID] = true
	}

	indexed := map[string]bool{}
	for _, event := range snapshot {
		if id := privateProp(event, propCommitID); id != "" {
			indexed[id] = true
		}
	}

	for _, c := range commits {
		if !indexed[c.ID] {
			actions.ToAdd = append(actions.ToAdd, c)
		}
	}

	if len(commits) == 0 {
		return actions
	}
	horizon := commits[0].Date

	for _, event := range snapshot {
		commitID := privateProp(event, propCommitID)
		if commitID == "" || fetched[commitID] {
			continue
		}
		date, err := time.Parse(time.RFC3339, privateProp(event, propCommitDate))
		if err != nil || date.Before(horizon) {
			continue
		}
		actions.ToDelete = append(actions.ToDelete, CommitDeletion{
			CommitID: commitID,
			EventID:  event.Id,
		})
	}

	return actions
}

// CommitToEvent renders a commit as a short event at its commit date.
func CommitToEvent(commit *model.Commit, opts CommitOptions) *calendar.Event {
	message := firstLine(commit.Message)
	if opts.ParseCommitEmojis {
		message = strings.TrimSpace(emojiShortcode.ReplaceAllString(message, ""))
	}

	start := commit.Date.UTC()
	return &calendar.Event{
		Summary:     fmt.Sprintf("%s - %s", commit.Repository.Name, message),
		Description: fmt.Sprintf("repository: %s\ncommit: %s", commit.Repository.FullName, commit.URL),
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: start.Add(time.Minute).Format(time.RFC3339)},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				propCommitID:   commit.ID,
				propCommitDate: start.Format(time.RFC3339),
				propRepository: commit.Repository.FullName,
			},
		},
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}
