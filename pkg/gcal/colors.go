package gcal

// Google Calendar event palette by the names the config uses.
var eventColorIDs = map[string]string{
	"lavender":  "1",
	"sage":      "2",
	"grape":     "3",
	"flamingo":  "4",
	"banana":    "5",
	"tangerine": "6",
	"peacock":   "7",
	"graphite":  "8",
	"blueberry": "9",
	"basil":     "10",
	"tomato":    "11",
}

// ColorID maps a configured color name to a Google colorId. Unknown or empty
// names return "", leaving the calendar's default color in place.
func ColorID(name string) string {
	return eventColorIDs[name]
}
