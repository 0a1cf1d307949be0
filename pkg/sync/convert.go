package sync

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/lucasvtiradentes/gcal-sync/pkg/gcal"
	"github.com/lucasvtiradentes/gcal-sync/pkg/model"
)

// Changed-field names carried on updates for session reporting.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldStart       = "start"
	FieldEnd         = "end"
	FieldTags        = "tags"
	FieldColor       = "color"
)

// TaskToEvent renders a canonical task as the destination event, including
// the private linkage properties the diff depends on.
func TaskToEvent(task *model.Task, color string) *calendar.Event {
	tags := append([]string(nil), task.Tags...)
	sort.Strings(tags)

	return &calendar.Event{
		Summary:     task.Name,
		Description: task.Description,
		ColorId:     color,
		Start:       scheduleToEventDateTime(task.Start),
		End:         scheduleToEventDateTime(task.End),
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				propSourceKey:   task.SourceKey,
				propTaskID:      task.ID,
				propContentHash: task.ContentHash(),
				propSequence:    strconv.Itoa(task.Sequence),
				propTags:        strings.Join(tags, ","),
			},
		},
	}
}

func taskColorID(name string) string {
	return gcal.ColorID(name)
}

func scheduleToEventDateTime(s model.EventSchedule) *calendar.EventDateTime {
	if s.IsAllDay() {
		return &calendar.EventDateTime{Date: s.Date}
	}
	return &calendar.EventDateTime{DateTime: s.DateTime, TimeZone: s.TimeZone}
}

// EventPatch compares an existing destination event against the freshly
// rendered target and returns a surgical patch carrying only the fields that
// differ, plus their names for session reporting. A nil patch means the event
// is already in sync.
func EventPatch(existing, target *calendar.Event) (*calendar.Event, []string) {
	patch := &calendar.Event{}
	var changed []string

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		changed = append(changed, FieldName)
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		changed = append(changed, FieldDescription)
	}
	if target.ColorId != "" && existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		changed = append(changed, FieldColor)
	}
	if !sameEventTime(existing.Start, target.Start) {
		patch.Start = target.Start
		changed = append(changed, FieldStart)
	}
	if !sameEventTime(existing.End, target.End) {
		patch.End = target.End
		changed = append(changed, FieldEnd)
	}
	if privateProp(existing, propTags) != target.ExtendedProperties.Private[propTags] {
		changed = append(changed, FieldTags)
	}

	if len(changed) == 0 {
		return nil, nil
	}
	// Re-link on every change so the stored hash and sequence stay current.
	patch.ExtendedProperties = target.ExtendedProperties
	return patch, changed
}

// sameEventTime compares schedules semantically: the calendar API normalizes
// date-times it returns, so equal instants may differ textually.
func sameEventTime(a, b *calendar.EventDateTime) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Date != "" || b.Date != "" {
		return a.Date == b.Date
	}
	at, aerr := parseEventDateTime(a.DateTime)
	bt, berr := parseEventDateTime(b.DateTime)
	if aerr == nil && berr == nil {
		return at.Equal(bt)
	}
	return a.DateTime == b.DateTime
}

func parseEventDateTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	// Suffix-free local form, produced when the timezone correction is 0.
	return time.Parse("2006-01-02T15:04:05", value)
}
