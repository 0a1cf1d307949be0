package gcal

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// Client is a Google Calendar API client scoped to one account, addressing
// calendars per call.
type Client struct {
	srv *calendar.Service
}

// NewClient wraps an authenticated calendar service.
func NewClient(srv *calendar.Service) *Client {
	return &Client{srv: srv}
}

// RateLimitedError signals calendar API overload. It is surfaced to the
// session, never retried here.
type RateLimitedError struct {
	Err error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("google calendar rate limited: %v", e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

// FindCalendar resolves a calendar name to its id, or "" when absent.
func (c *Client) FindCalendar(name string) (string, error) {
	list, err := c.srv.CalendarList.List().Do()
	if err != nil {
		return "", wrapAPIError("unable to retrieve calendar list", err)
	}
	for _, item := range list.Items {
		if item.Summary == name {
			return item.Id, nil
		}
	}
	return "", nil
}

// EnsureCalendar resolves a calendar name to its id, creating the calendar
// when it does not exist yet.
func (c *Client) EnsureCalendar(name string) (string, error) {
	id, err := c.FindCalendar(name)
	if err != nil || id != "" {
		return id, err
	}
	created, err := c.srv.Calendars.Insert(&calendar.Calendar{Summary: name}).Do()
	if err != nil {
		return "", wrapAPIError(fmt.Sprintf("unable to create calendar '%s'", name), err)
	}
	return created.Id, nil
}

// ListEvents fetches every event on the calendar, following page tokens.
func (c *Client) ListEvents(calendarID string) ([]*calendar.Event, error) {
	var items []*calendar.Event
	pageToken := ""
	for {
		call := c.srv.Events.List(calendarID).MaxResults(2500).ShowDeleted(false)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		events, err := call.Do()
		if err != nil {
			return nil, wrapAPIError("unable to retrieve events from calendar", err)
		}
		items = append(items, events.Items...)
		pageToken = events.NextPageToken
		if pageToken == "" {
			return items, nil
		}
	}
}

// InsertEvent creates an event on the calendar.
func (c *Client) InsertEvent(calendarID string, event *calendar.Event) (*calendar.Event, error) {
	created, err := c.srv.Events.Insert(calendarID, event).Do()
	if err != nil {
		return nil, wrapAPIError("unable to insert event", err)
	}
	return created, nil
}

// PatchEvent performs a partial update on an event.
func (c *Client) PatchEvent(calendarID, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	updated, err := c.srv.Events.Patch(calendarID, eventID, patch).Do()
	if err != nil {
		return nil, wrapAPIError("unable to patch event", err)
	}
	return updated, nil
}

// MoveEvent transfers an event to another calendar, keeping its id and
// extended properties.
func (c *Client) MoveEvent(fromCalendarID, eventID, toCalendarID string) (*calendar.Event, error) {
	moved, err := c.srv.Events.Move(fromCalendarID, eventID, toCalendarID).Do()
	if err != nil {
		return nil, wrapAPIError("unable to move event", err)
	}
	return moved, nil
}

// DeleteEvent deletes an event from the calendar. Only the commits pipeline
// uses deletion; task events are moved, never deleted.
func (c *Client) DeleteEvent(calendarID, eventID string) error {
	if err := c.srv.Events.Delete(calendarID, eventID).Do(); err != nil {
		return wrapAPIError("unable to delete event", err)
	}
	return nil
}

func wrapAPIError(msg string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusTooManyRequests || (gerr.Code == http.StatusForbidden && isRateLimitReason(gerr)) {
			return &RateLimitedError{Err: err}
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isRateLimitReason(gerr *googleapi.Error) bool {
	for _, e := range gerr.Errors {
		if strings.Contains(e.Reason, "ateLimit") || e.Reason == "userRateLimitExceeded" {
			return true
		}
	}
	return false
}
