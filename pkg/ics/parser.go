package ics

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lucasvtiradentes/gcal-sync/pkg/model"
)

// The feed generator reports an empty task list as a single placeholder event
// rather than an empty calendar.
const noTaskSentinel = "SUMMARY:No task."

const (
	beginCalendar = "BEGIN:VCALENDAR"
	beginEvent    = "BEGIN:VEVENT"
	beginAlarm    = "BEGIN:VALARM"
	endAlarm      = "END:VALARM"
)

var tagMarker = regexp.MustCompile(`#[\p{L}\p{N}_-]+`)

// Parse converts one raw VCALENDAR payload into canonical task records.
//
// Field extraction is delimiter scanning, not grammar parsing: the feeds come
// from a single controlled generator, so each field is cut from its name up to
// the line terminator. Events lacking a SUMMARY are dropped as malformed
// fragments. Events whose dates cannot be normalized are returned as
// NormalizationErrors alongside the surviving records.
//
// tzCorrection is a whole-hour offset folded into a fixed ±HH:00 suffix on
// timed events; 0 emits no suffix. sourceKey tags every record with the feed
// it came from.
func Parse(raw, link, sourceKey string, tzCorrection int) ([]model.Task, []*NormalizationError, error) {
	if !strings.Contains(raw, beginCalendar) {
		return nil, nil, &InvalidFeedFormatError{Link: link}
	}
	if strings.Contains(raw, noTaskSentinel) {
		return nil, nil, nil
	}

	var tasks []model.Task
	var failed []*NormalizationError

	blocks := strings.Split(raw, beginEvent)
	for _, block := range blocks[1:] {
		block = stripAlarms(block)
		if _, ok := fieldValue(block, "SUMMARY"); !ok {
			continue
		}
		task, nerr := parseEvent(block, sourceKey, tzCorrection)
		if nerr != nil {
			failed = append(failed, nerr)
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, failed, nil
}

func parseEvent(block, sourceKey string, tzCorrection int) (model.Task, *NormalizationError) {
	uid, _ := fieldValue(block, "UID")
	summary, _ := fieldValue(block, "SUMMARY")
	description, _ := fieldValue(block, "DESCRIPTION")

	summary = unescapeText(summary)
	description = unescapeText(description)

	seq := 0
	if raw, ok := fieldValue(block, "SEQUENCE"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			seq = n
		}
	}

	dtStart, startParams, hasStart := fieldWithParams(block, "DTSTART")
	if !hasStart {
		return model.Task{}, &NormalizationError{TaskID: uid, Field: "DTSTART", Reason: "missing"}
	}
	dtEnd, endParams, hasEnd := fieldWithParams(block, "DTEND")

	tzid := paramValue(startParams, "TZID")

	var start, end model.EventSchedule
	if !hasEnd {
		// No end means an all-day task: the end date is exactly one calendar
		// day after the start, computed in UTC regardless of source timezone.
		startDate, err := parseDatePart(dtStart)
		if err != nil {
			return model.Task{}, &NormalizationError{TaskID: uid, Field: "DTSTART", Reason: err.Error()}
		}
		start = model.EventSchedule{Date: startDate.Format("2006-01-02")}
		end = model.EventSchedule{Date: startDate.AddDate(0, 0, 1).Format("2006-01-02")}
	} else {
		var err error
		start, err = normalizeDateTime(dtStart, tzid, tzCorrection)
		if err != nil {
			return model.Task{}, &NormalizationError{TaskID: uid, Field: "DTSTART", Reason: err.Error()}
		}
		endTZID := paramValue(endParams, "TZID")
		if endTZID == "" {
			endTZID = tzid
		}
		end, err = normalizeDateTime(dtEnd, endTZID, tzCorrection)
		if err != nil {
			return model.Task{}, &NormalizationError{TaskID: uid, Field: "DTEND", Reason: err.Error()}
		}
	}

	name, tags := extractTags(summary, description)

	return model.Task{
		ID:          uid,
		Name:        name,
		Description: description,
		Tags:        tags,
		TZID:        tzid,
		Start:       start,
		End:         end,
		SourceKey:   sourceKey,
		Sequence:    seq,
	}, nil
}

// normalizeDateTime converts an ICS timestamp into a destination-ready
// schedule. Date-only values stay dates. Timed values get the configured
// whole-hour correction rendered as a fixed UTC-offset suffix; no real
// timezone arithmetic is applied.
func normalizeDateTime(value, tzid string, tzCorrection int) (model.EventSchedule, error) {
	value = strings.TrimSpace(value)
	if len(value) == 8 {
		d, err := parseDatePart(value)
		if err != nil {
			return model.EventSchedule{}, err
		}
		return model.EventSchedule{Date: d.Format("2006-01-02")}, nil
	}

	value = strings.TrimSuffix(value, "Z")
	t, err := time.Parse("20060102T150405", value)
	if err != nil {
		return model.EventSchedule{}, fmt.Errorf("unparseable date-time %q", value)
	}
	return model.EventSchedule{
		DateTime: t.Format("2006-01-02T15:04:05") + offsetSuffix(tzCorrection),
		TimeZone: tzid,
	}, nil
}

// offsetSuffix renders a whole-hour correction as ±HH:00. Zero means no suffix.
func offsetSuffix(hours int) string {
	switch {
	case hours > 0:
		return fmt.Sprintf("+%02d:00", hours)
	case hours < 0:
		return fmt.Sprintf("-%02d:00", -hours)
	default:
		return ""
	}
}

func parseDatePart(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if idx := strings.Index(value, "T"); idx >= 0 {
		value = value[:idx]
	}
	t, err := time.ParseInLocation("20060102", value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q", value)
	}
	return t, nil
}

// extractTags pulls #marker tokens out of the summary and description. The
// returned name is the summary with markers removed; the description is left
// intact by the caller.
func extractTags(summary, description string) (string, []string) {
	seen := map[string]bool{}
	var tags []string
	for _, text := range []string{summary, description} {
		for _, m := range tagMarker.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				tags = append(tags, m)
			}
		}
	}
	sort.Strings(tags)

	name := tagMarker.ReplaceAllString(summary, "")
	name = strings.Join(strings.Fields(name), " ")
	return name, tags
}

// stripAlarms removes VALARM sub-blocks so their DESCRIPTION/TRIGGER lines do
// not shadow the event's own fields.
func stripAlarms(block string) string {
	for {
		begin := strings.Index(block, beginAlarm)
		if begin < 0 {
			return block
		}
		end := strings.Index(block[begin:], endAlarm)
		if end < 0 {
			return block[:begin]
		}
		block = block[:begin] + block[begin+end+len(endAlarm):]
	}
}

// fieldValue cuts a field's value from its name up to the line terminator.
func fieldValue(block, name string) (string, bool) {
	value, _, ok := fieldWithParams(block, name)
	return value, ok
}

func fieldWithParams(block, name string) (value, params string, ok bool) {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimRight(line, "\r")
		rest, found := strings.CutPrefix(line, name)
		if !found || rest == "" {
			continue
		}
		switch rest[0] {
		case ':':
			return rest[1:], "", true
		case ';':
			// Params sit between the field name and the value colon.
			colon := strings.Index(rest, ":")
			if colon < 0 {
				continue
			}
			return rest[colon+1:], rest[1:colon], true
		}
	}
	return "", "", false
}

func paramValue(params, key string) string {
	for _, p := range strings.Split(params, ";") {
		if v, ok := strings.CutPrefix(p, key+"="); ok {
			return v
		}
	}
	return ""
}

func unescapeText(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return r.Replace(s)
}
