package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// EventSchedule is either an all-day date or a zoned date-time, matching the
// shape Google Calendar expects. Exactly one of Date or DateTime is set.
type EventSchedule struct {
	Date     string // "2006-01-02", all-day
	DateTime string // "2006-01-02T15:04:05" with optional ±HH:00 suffix
	TimeZone string // TZID for date-time schedules
}

// IsAllDay reports whether the schedule carries no time component.
func (s EventSchedule) IsAllDay() bool {
	return s.Date != ""
}

func (s EventSchedule) Equal(o EventSchedule) bool {
	return s.Date == o.Date && s.DateTime == o.DateTime && s.TimeZone == o.TimeZone
}

// Task is a canonical record parsed from one source feed. ID is stable within
// one feed only; cross-destination identity is (SourceKey, ID).
type Task struct {
	ID          string
	Name        string // tag markers stripped
	Description string
	Tags        []string // "#"-prefixed markers, sorted, deduplicated
	TZID        string
	Start       EventSchedule
	End         EventSchedule
	SourceKey   string
	Sequence    int
}

// HasTag reports whether the task carries the given tag marker.
func (t *Task) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the task carries at least one of the given tags.
func (t *Task) HasAnyTag(tags []string) bool {
	for _, tag := range tags {
		if t.HasTag(tag) {
			return true
		}
	}
	return false
}

// ContentHash digests the fields a destination event is rendered from. Stored
// in event extended properties so unchanged tasks can be skipped without a
// field-by-field comparison.
func (t *Task) ContentHash() string {
	tags := append([]string(nil), t.Tags...)
	sort.Strings(tags)
	h := sha256.New()
	for _, part := range []string{
		t.Name,
		t.Description,
		strings.Join(tags, ","),
		t.Start.Date, t.Start.DateTime, t.Start.TimeZone,
		t.End.Date, t.End.DateTime, t.End.TimeZone,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
