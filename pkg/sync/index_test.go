package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
)

func TestEventIndex_SkipsForeignEvents(t *testing.T) {
	linked := eventFor(makeTask("t1", "Linked", "feed-a", 0))
	foreign := &calendar.Event{Id: "manual", Summary: "Dentist"}

	idx := NewEventIndex([]*calendar.Event{linked, foreign})

	require.NotNil(t, idx.Get("feed-a", "t1"))
	assert.Nil(t, idx.Get("", ""))
}

func TestEventIndex_SetObservesOwnWrites(t *testing.T) {
	idx := NewEventIndex(nil)
	assert.Nil(t, idx.Get("feed-a", "t1"))

	inserted := eventFor(makeTask("t1", "New", "feed-a", 0))
	idx.Set("feed-a", "t1", inserted)
	assert.Equal(t, inserted, idx.Get("feed-a", "t1"))

	idx.Remove("feed-a", "t1")
	assert.Nil(t, idx.Get("feed-a", "t1"))
}

func TestEventIndex_Each(t *testing.T) {
	idx := NewEventIndex([]*calendar.Event{
		eventFor(makeTask("t1", "One", "feed-a", 0)),
		eventFor(makeTask("t2", "Two", "feed-b", 0)),
	})

	seen := map[string]bool{}
	idx.Each(func(sourceKey, taskID string, _ *calendar.Event) {
		seen[sourceKey+"/"+taskID] = true
	})
	assert.Equal(t, map[string]bool{"feed-a/t1": true, "feed-b/t2": true}, seen)
}
