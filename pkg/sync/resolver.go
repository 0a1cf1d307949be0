package sync

import "github.com/lucasvtiradentes/gcal-sync/pkg/model"

// Source is one feed's contribution to a destination calendar, with the tag
// rules evaluated per task at diff time.
type Source struct {
	Key          string
	Link         string
	DoneCalendar string
	Tag          string
	IgnoredTags  []string
	Color        string
}

// Destination groups every source feeding one active calendar.
type Destination struct {
	Calendar string
	Sources  []Source
}

// ResolveMappings collapses the configured mappings into one entry per active
// calendar name. Mappings sharing a destination are condensed in first-seen
// order; the order is never sorted, so event ordering stays deterministic
// across runs with unchanged config.
func ResolveMappings(mappings []model.Mapping) []Destination {
	byCalendar := map[string]int{}
	var destinations []Destination

	for _, m := range mappings {
		src := Source{
			Key:          m.SourceKey(),
			Link:         m.Link,
			DoneCalendar: m.DoneCalendar,
			Tag:          m.Tag,
			IgnoredTags:  append([]string(nil), m.IgnoredTags...),
			Color:        m.Color,
		}
		if i, ok := byCalendar[m.Calendar]; ok {
			destinations[i].Sources = append(destinations[i].Sources, src)
			continue
		}
		byCalendar[m.Calendar] = len(destinations)
		destinations = append(destinations, Destination{
			Calendar: m.Calendar,
			Sources:  []Source{src},
		})
	}
	return destinations
}
