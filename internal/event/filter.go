package event

import "strings"

// Filter returns the events whose title contains query, ignoring case.
// A blank query matches every event. The result is never nil.
func Filter(events []Event, query string) []Event {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]Event, len(events))
		copy(out, events)
		return out
	}

	needle := strings.ToLower(query)
	out := []Event{}
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Title), needle) {
			out = append(out, e)
		}
	}
	return out
}
