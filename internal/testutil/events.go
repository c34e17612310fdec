package testutil

import "github.com/roach88/myuni/internal/event"

// StripIDs returns copies of events with surrogate ids cleared, for comparing
// snapshot contents across replaces.
func StripIDs(events []event.Event) []event.Event {
	out := make([]event.Event, len(events))
	for i, e := range events {
		e.ID = 0
		out[i] = e
	}
	return out
}
