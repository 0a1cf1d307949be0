package sync

import (
	"strconv"

	"google.golang.org/api/calendar/v3"

	"github.com/lucasvtiradentes/gcal-sync/pkg/model"
)

// TaskAddition is a task with no destination event yet.
type TaskAddition struct {
	Task  model.Task
	Event *calendar.Event
}

// TaskUpdate is a surgical patch for an event whose task content changed.
type TaskUpdate struct {
	TaskID    string
	SourceKey string
	EventID   string
	Patch     *calendar.Event
	Fields    []string
}

// TaskCompletion moves an event whose task vanished from its source feed to
// the completed calendar. Active-calendar tasks are never hard-deleted.
type TaskCompletion struct {
	TaskID       string
	SourceKey    string
	EventID      string
	DoneCalendar string
}

// TaskActions is the minimal mutation set for one destination calendar.
type TaskActions struct {
	ToAdd      []TaskAddition
	ToUpdate   []TaskUpdate
	ToComplete []TaskCompletion
}

// DiffTasks computes the action set for one destination: canonical tasks per
// condensed source against the active-calendar snapshot.
//
// Tag routing happens here, per task: a source contributes a task only when
// the source has no tag filter or the task carries it, and the task carries
// none of the source's ignored tags. When the same task id arrives from two
// condensed sources, the later source wins.
func DiffTasks(dest Destination, tasksBySource map[string][]model.Task, snapshot []*calendar.Event) *TaskActions {
	type candidate struct {
		task  model.Task
		color string
	}

	var order []string
	incoming := map[string]candidate{}
	for _, source := range dest.Sources {
		for _, task := range tasksBySource[source.Key] {
			if !routable(&task, source) {
				continue
			}
			if _, seen := incoming[task.ID]; !seen {
				order = append(order, task.ID)
			}
			// Later condensed source wins for a shared task id.
			incoming[task.ID] = candidate{task: task, color: source.Color}
		}
	}

	index := NewEventIndex(snapshot)
	actions := &TaskActions{}

	for _, id := range order {
		cand := incoming[id]
		task := cand.task

		existing := lookupAcrossSources(index, dest.Sources, id)
		if existing == nil {
			actions.ToAdd = append(actions.ToAdd, TaskAddition{
				Task:  task,
				Event: TaskToEvent(&task, taskColorID(cand.color)),
			})
			continue
		}

		// Sequence plus content hash is the cheap no-change fast path; any
		// mismatch falls back to field-by-field comparison.
		if storedSequence(existing) == task.Sequence && privateProp(existing, propContentHash) == task.ContentHash() {
			continue
		}

		target := TaskToEvent(&task, taskColorID(cand.color))
		patch, fields := EventPatch(existing, target)
		if patch == nil {
			continue
		}
		actions.ToUpdate = append(actions.ToUpdate, TaskUpdate{
			TaskID:    task.ID,
			SourceKey: task.SourceKey,
			EventID:   existing.Id,
			Patch:     patch,
			Fields:    fields,
		})
	}

	// Sweep: linked events whose task is gone from the current incoming set
	// were completed or removed upstream. Snapshot order keeps this stable.
	doneBySource := map[string]string{}
	for _, source := range dest.Sources {
		doneBySource[source.Key] = source.DoneCalendar
	}
	for _, event := range snapshot {
		sourceKey := privateProp(event, propSourceKey)
		taskID := privateProp(event, propTaskID)
		if sourceKey == "" || taskID == "" {
			continue
		}
		done, owned := doneBySource[sourceKey]
		if !owned {
			continue
		}
		if _, present := incoming[taskID]; present {
			continue
		}
		actions.ToComplete = append(actions.ToComplete, TaskCompletion{
			TaskID:       taskID,
			SourceKey:    sourceKey,
			EventID:      event.Id,
			DoneCalendar: done,
		})
	}

	return actions
}

func routable(task *model.Task, source Source) bool {
	if source.Tag != "" && !task.HasTag(source.Tag) {
		return false
	}
	return !task.HasAnyTag(source.IgnoredTags)
}

// lookupAcrossSources finds the event owning a task id under any of the
// destination's condensed sources, in condensed order.
func lookupAcrossSources(index *EventIndex, sources []Source, taskID string) *calendar.Event {
	for _, source := range sources {
		if event := index.Get(source.Key, taskID); event != nil {
			return event
		}
	}
	return nil
}

func storedSequence(event *calendar.Event) int {
	n, err := strconv.Atoi(privateProp(event, propSequence))
	if err != nil {
		return -1
	}
	return n
}
