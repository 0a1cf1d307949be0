package sync

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/lucasvtiradentes/gcal-sync/pkg/model"
)

func makeTask(id, name, sourceKey string, seq int, tags ...string) model.Task {
	return model.Task{
		ID:        id,
		Name:      name,
		Tags:      tags,
		Start:     model.EventSchedule{Date: "2023-02-17"},
		End:       model.EventSchedule{Date: "2023-02-18"},
		SourceKey: sourceKey,
		Sequence:  seq,
	}
}

// eventFor simulates what the calendar holds after an add was applied.
func eventFor(task model.Task) *calendar.Event {
	event := TaskToEvent(&task, "")
	event.Id = "evt-" + task.SourceKey + "-" + task.ID
	return event
}

func singleSourceDest() Destination {
	return Destination{
		Calendar: "cal1",
		Sources:  []Source{{Key: "feed-a", Link: "feed-a", DoneCalendar: "done1"}},
	}
}

func TestDiffTasks_NewTaskIsAdded(t *testing.T) {
	task := makeTask("t1", "Write report", "feed-a", 0)
	actions := DiffTasks(singleSourceDest(), map[string][]model.Task{"feed-a": {task}}, nil)

	require.Len(t, actions.ToAdd, 1)
	assert.Empty(t, actions.ToUpdate)
	assert.Empty(t, actions.ToComplete)

	event := actions.ToAdd[0].Event
	assert.Equal(t, "Write report", event.Summary)
	assert.Equal(t, "t1", event.ExtendedProperties.Private[propTaskID])
	assert.Equal(t, "feed-a", event.ExtendedProperties.Private[propSourceKey])
	assert.NotEmpty(t, event.ExtendedProperties.Private[propContentHash])
}

func TestDiffTasks_Idempotence(t *testing.T) {
	task := makeTask("t1", "Write report", "feed-a", 2)
	tasks := map[string][]model.Task{"feed-a": {task}}

	first := DiffTasks(singleSourceDest(), tasks, nil)
	require.Len(t, first.ToAdd, 1)

	// Snapshot after the first apply.
	snapshot := []*calendar.Event{eventFor(task)}

	second := DiffTasks(singleSourceDest(), tasks, snapshot)
	assert.Empty(t, second.ToAdd)
	assert.Empty(t, second.ToUpdate)
	assert.Empty(t, second.ToComplete)
}

func TestDiffTasks_ChangedNameProducesUpdate(t *testing.T) {
	old := makeTask("t1", "Write report", "feed-a", 1)
	snapshot := []*calendar.Event{eventFor(old)}

	changed := makeTask("t1", "Write the report", "feed-a", 2)
	actions := DiffTasks(singleSourceDest(), map[string][]model.Task{"feed-a": {changed}}, snapshot)

	require.Len(t, actions.ToUpdate, 1)
	update := actions.ToUpdate[0]
	assert.Equal(t, "t1", update.TaskID)
	assert.Equal(t, []string{FieldName}, update.Fields)
	assert.Equal(t, "Write the report", update.Patch.Summary)
	assert.Empty(t, actions.ToAdd)
	assert.Empty(t, actions.ToComplete)
}

func TestDiffTasks_BumpedSequenceSameContentIsNoop(t *testing.T) {
	old := makeTask("t1", "Write report", "feed-a", 1)
	snapshot := []*calendar.Event{eventFor(old)}

	bumped := makeTask("t1", "Write report", "feed-a", 2)
	actions := DiffTasks(singleSourceDest(), map[string][]model.Task{"feed-a": {bumped}}, snapshot)

	assert.Empty(t, actions.ToUpdate, "sequence alone must not force a mutation")
	assert.Empty(t, actions.ToAdd)
}

func TestDiffTasks_VanishedTaskIsCompletedNotDeleted(t *testing.T) {
	gone := makeTask("t1", "Write report", "feed-a", 1)
	snapshot := []*calendar.Event{eventFor(gone)}

	actions := DiffTasks(singleSourceDest(), map[string][]model.Task{"feed-a": {}}, snapshot)

	require.Len(t, actions.ToComplete, 1)
	completion := actions.ToComplete[0]
	assert.Equal(t, "t1", completion.TaskID)
	assert.Equal(t, "done1", completion.DoneCalendar)
	assert.Equal(t, "evt-feed-a-t1", completion.EventID)
}

func TestDiffTasks_ForeignEventsAreNeverTouched(t *testing.T) {
	foreign := &calendar.Event{Id: "manual-1", Summary: "Dentist"}
	actions := DiffTasks(singleSourceDest(), map[string][]model.Task{"feed-a": {}}, []*calendar.Event{foreign})

	assert.Empty(t, actions.ToComplete)
	assert.Empty(t, actions.ToUpdate)
}

func TestDiffTasks_TagRouting(t *testing.T) {
	// Two feeds condensed into cal1: feed-a only accepts #X, feed-b ignores #X.
	dest := Destination{
		Calendar: "cal1",
		Sources: []Source{
			{Key: "feed-a", Link: "feed-a", DoneCalendar: "done-a", Tag: "#X"},
			{Key: "feed-b", Link: "feed-b", DoneCalendar: "done-b", IgnoredTags: []string{"#X"}},
		},
	}

	tagged := makeTask("t1", "Tagged work", "feed-b", 0, "#X")
	actions := DiffTasks(dest, map[string][]model.Task{"feed-b": {tagged}}, nil)
	assert.Empty(t, actions.ToAdd, "a #X task from feed-b must be excluded")

	fromA := makeTask("t1", "Tagged work", "feed-a", 0, "#X")
	actions = DiffTasks(dest, map[string][]model.Task{"feed-a": {fromA}}, nil)
	require.Len(t, actions.ToAdd, 1, "the same task from feed-a must appear")

	untagged := makeTask("t2", "Plain work", "feed-a", 0)
	actions = DiffTasks(dest, map[string][]model.Task{"feed-a": {untagged}}, nil)
	assert.Empty(t, actions.ToAdd, "feed-a requires the #X tag")
}

func TestDiffTasks_LaterCondensedSourceWins(t *testing.T) {
	dest := Destination{
		Calendar: "cal1",
		Sources: []Source{
			{Key: "feed-a", Link: "feed-a", DoneCalendar: "done-a"},
			{Key: "feed-b", Link: "feed-b", DoneCalendar: "done-b"},
		},
	}
	tasks := map[string][]model.Task{
		"feed-a": {makeTask("t1", "From A", "feed-a", 0)},
		"feed-b": {makeTask("t1", "From B", "feed-b", 0)},
	}

	actions := DiffTasks(dest, tasks, nil)
	require.Len(t, actions.ToAdd, 1)
	assert.Equal(t, "From B", actions.ToAdd[0].Event.Summary)
}

func TestDiffTasks_ExistingEventFoundUnderSiblingSource(t *testing.T) {
	dest := Destination{
		Calendar: "cal1",
		Sources: []Source{
			{Key: "feed-a", Link: "feed-a", DoneCalendar: "done-a"},
			{Key: "feed-b", Link: "feed-b", DoneCalendar: "done-b"},
		},
	}
	// Event created when feed-a owned t1; now feed-b supplies it.
	snapshot := []*calendar.Event{eventFor(makeTask("t1", "Shared", "feed-a", 0))}
	tasks := map[string][]model.Task{
		"feed-b": {makeTask("t1", "Shared", "feed-b", 0)},
	}

	actions := DiffTasks(dest, tasks, snapshot)
	assert.Empty(t, actions.ToAdd, "must not duplicate an event owned by a sibling source")
	assert.Empty(t, actions.ToComplete)
}

func TestDiffTasks_ManyTasksStableOrder(t *testing.T) {
	var tasks []model.Task
	for i := 0; i < 5; i++ {
		tasks = append(tasks, makeTask(fmt.Sprintf("t%d", i), fmt.Sprintf("Task %d", i), "feed-a", 0))
	}
	actions := DiffTasks(singleSourceDest(), map[string][]model.Task{"feed-a": tasks}, nil)

	require.Len(t, actions.ToAdd, 5)
	for i, add := range actions.ToAdd {
		assert.Equal(t, fmt.Sprintf("t%d", i), add.Task.ID, "additions follow feed order")
	}
}
