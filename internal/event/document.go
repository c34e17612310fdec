package event

// Document is a single remote event document: an opaque mapping from field
// name to value as decoded from the remote store.
type Document map[string]any

// String returns the string value of field, and false if the field is
// absent, null, or not a string.
func (d Document) String(field string) (string, bool) {
	if d == nil {
		return "", false
	}
	v, ok := d[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// stringOr returns the string value of field or def.
func (d Document) stringOr(field, def string) string {
	if s, ok := d.String(field); ok {
		return s
	}
	return def
}

// FromDocument maps a remote document to an Event, substituting defaults for
// every field that is missing. The returned Event has no ID.
func FromDocument(d Document) Event {
	return Event{
		Title:       d.stringOr(FieldTitle, DefaultTitle),
		Time:        d.stringOr(FieldTime, DefaultTime),
		Place:       d.stringOr(FieldPlace, DefaultPlace),
		Description: d.stringOr(FieldDescription, DefaultDescription),
	}
}

// FromDocuments maps a full remote snapshot. Order and cardinality are
// preserved; the result is never nil.
func FromDocuments(docs []Document) []Event {
	events := make([]Event, 0, len(docs))
	for _, d := range docs {
		events = append(events, FromDocument(d))
	}
	return events
}
