package sync

import (
	"google.golang.org/api/calendar/v3"
)

// Extended-property keys linking a destination event back to its canonical
// record. Events without this linkage are foreign and are never mutated or
// deleted.
const (
	propSourceKey   = "sourceCalendarKey"
	propTaskID      = "taskId"
	propContentHash = "contentHash"
	propSequence    = "sequence"
	propTags        = "tags"
	propCommitID    = "commitId"
	propCommitDate  = "commitDate"
	propRepository  = "repository"
)

// EventIndex maps (sourceCalendarKey, taskId) to the destination event it
// owns. It is rebuilt from the calendar snapshot every run; nothing about it
// is persisted, which keeps the diff self-healing against state loss.
type EventIndex struct {
	mappings map[indexKey]*calendar.Event
}

type indexKey struct {
	sourceKey string
	taskID    string
}

// NewEventIndex indexes a calendar snapshot. Foreign events, those missing
// the private linkage properties, are left out entirely.
func NewEventIndex(snapshot []*calendar.Event) *EventIndex {
	idx := &EventIndex{mappings: make(map[indexKey]*calendar.Event, len(snapshot))}
	for _, event := range snapshot {
		sourceKey := privateProp(event, propSourceKey)
		taskID := privateProp(event, propTaskID)
		if sourceKey == "" || taskID == "" {
			continue
		}
		idx.mappings[indexKey{sourceKey, taskID}] = event
	}
	return idx
}

// Get returns the event linked to (sourceKey, taskID), or nil.
func (idx *EventIndex) Get(sourceKey, taskID string) *calendar.Event {
	return idx.mappings[indexKey{sourceKey, taskID}]
}

// Set records a linkage, so mutations within one run observe their own
// prior writes.
func (idx *EventIndex) Set(sourceKey, taskID string, event *calendar.Event) {
	idx.mappings[indexKey{sourceKey, taskID}] = event
}

// Remove drops a linkage.
func (idx *EventIndex) Remove(sourceKey, taskID string) {
	delete(idx.mappings, indexKey{sourceKey, taskID})
}

// Each visits every indexed event.
func (idx *EventIndex) Each(fn func(sourceKey, taskID string, event *calendar.Event)) {
	for key, event := range idx.mappings {
		fn(key.sourceKey, key.taskID, event)
	}
}

func privateProp(event *calendar.Event, key string) string {
	if event == nil || event.ExtendedProperties == nil || event.ExtendedProperties.Private == nil {
		return ""
	}
	return event.ExtendedProperties.Private[key]
}
