package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/myuni/internal/event"
)

// createTestStore creates a new file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates an event with the given title and default other fields.
func createTestEvent(title string) event.Event {
	e := event.FromDocument(event.Document{})
	e.Title = title
	return e
}
