package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/lucasvtiradentes/gcal-sync/pkg/model"
)

func makeCommit(id string, date time.Time, fork bool) model.Commit {
	return model.Commit{
		ID:      id,
		Date:    date,
		Message: "fix: " + id,
		URL:     "https://github.com/owner/repo/commit/" + id,
		Repository: model.Repository{
			Owner:    "owner",
			Name:     "repo",
			FullName: "owner/repo",
			Fork:     fork,
		},
	}
}

func commitEvent(commit model.Commit) *calendar.Event {
	event := CommitToEvent(&commit, CommitOptions{})
	event.Id = "evt-" + commit.ID
	return event
}

func TestDiffCommits_NewCommitsAddedOldestFirst(t *testing.T) {
	base := time.Date(2023, 2, 17, 10, 0, 0, 0, time.UTC)
	commits := []model.Commit{
		makeCommit("sha1", base, false),
		makeCommit("sha2", base.Add(time.Hour), false),
	}

	actions := DiffCommits(commits, nil, CommitOptions{})
	require.Len(t, actions.ToAdd, 2)
	assert.Equal(t, "sha1", actions.ToAdd[0].ID)
	assert.Equal(t, "sha2", actions.ToAdd[1].ID)
	assert.Empty(t, actions.ToDelete)
}

func TestDiffCommits_Idempotence(t *testing.T) {
	base := time.Date(2023, 2, 17, 10, 0, 0, 0, time.UTC)
	commits := []model.Commit{makeCommit("sha1", base, false)}
	snapshot := []*calendar.Event{commitEvent(commits[0])}

	actions := DiffCommits(commits, snapshot, CommitOptions{})
	assert.Empty(t, actions.ToAdd)
	assert.Empty(t, actions.ToDelete)
}

func TestDiffCommits_DeletionInsideHorizon(t *testing.T) {
	base := time.Date(2023, 2, 17, 10, 0, 0, 0, time.UTC)
	kept := makeCommit("sha1", base, false)
	vanished := makeCommit("sha2", base.Add(time.Hour), false)

	snapshot := []*calendar.Event{commitEvent(kept), commitEvent(vanished)}
	actions := DiffCommits([]model.Commit{kept}, snapshot, CommitOptions{})

	require.Len(t, actions.ToDelete, 1)
	assert.Equal(t, "sha2", actions.ToDelete[0].CommitID)
	assert.Equal(t, "evt-sha2", actions.ToDelete[0].EventID)
}

func TestDiffCommits_EventsOlderThanHorizonAreKept(t *testing.T) {
	base := time.Date(2023, 2, 17, 10, 0, 0, 0, time.UTC)
	ancient := makeCommit("old-sha", base.Add(-48*time.Hour), false)
	fetched := makeCommit("sha1", base, false)

	// The ancient event is indexed but outside the fetch window.
	snapshot := []*calendar.Event{commitEvent(ancient), commitEvent(fetched)}
	actions := DiffCommits([]model.Commit{fetched}, snapshot, CommitOptions{})

	assert.Empty(t, actions.ToDelete, "commits beyond the horizon must never be deleted")
}

func TestDiffCommits_EmptyFetchDeletesNothing(t *testing.T) {
	base := time.Date(2023, 2, 17, 10, 0, 0, 0, time.UTC)
	snapshot := []*calendar.Event{commitEvent(makeCommit("sha1", base, false))}

	actions := DiffCommits(nil, snapshot, CommitOptions{})
	assert.Empty(t, actions.ToAdd)
	assert.Empty(t, actions.ToDelete)
}

func TestDiffCommits_ForeignEventsUntouched(t *testing.T) {
	foreign := &calendar.Event{Id: "manual-1", Summary: "Standup"}
	base := time.Date(2023, 2, 17, 10, 0, 0, 0, time.UTC)

	actions := DiffCommits([]model.Commit{makeCommit("sha1", base, false)}, []*calendar.Event{foreign}, CommitOptions{})
	require.Len(t, actions.ToAdd, 1)
	assert.Empty(t, actions.ToDelete)
}

func TestDiffCommits_IgnoreForks(t *testing.T) {
	base := time.Date(2023, 2, 17, 10, 0, 0, 0, time.UTC)
	commits := []model.Commit{
		makeCommit("sha1", base, false),
		makeCommit("sha2", base.Add(time.Hour), true),
	}

	actions := DiffCommits(commits, nil, CommitOptions{IgnoreForks: true})
	require.Len(t, actions.ToAdd, 1)
	assert.Equal(t, "sha1", actions.ToAdd[0].ID)
}

func TestCommitToEvent_Rendering(t *testing.T) {
	date := time.Date(2023, 2, 17, 10, 0, 0, 0, time.UTC)
	commit := makeCommit("sha1", date, false)
	commit.Message = ":sparkles: add feature\n\nlong body"

	event := CommitToEvent(&commit, CommitOptions{ParseCommitEmojis: true})
	assert.Equal(t, "repo - add feature", event.Summary)
	assert.Equal(t, "sha1", event.ExtendedProperties.Private[propCommitID])
	assert.Equal(t, "2023-02-17T10:00:00Z", event.ExtendedProperties.Private[propCommitDate])
	assert.Equal(t, "2023-02-17T10:00:00Z", event.Start.DateTime)
	assert.Equal(t, "2023-02-17T10:01:00Z", event.End.DateTime)
}
