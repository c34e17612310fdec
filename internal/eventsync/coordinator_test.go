package eventsync

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/myuni/internal/event"
	"github.com/roach88/myuni/internal/store"
	"github.com/roach88/myuni/internal/testutil"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newCoordinator(t *testing.T, src Source, st Store, ids ...string) *Coordinator {
	t.Helper()
	return New(src, st,
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		WithRunIDGenerator(NewFixedGenerator(ids...)),
		WithClock(testutil.NewStepClock(epoch, time.Second).Now),
	)
}

func fairDoc() event.Document {
	return event.Document{
		"title":       "Fair",
		"time":        "10:00",
		"place":       "Quad",
		"description": "Job fair",
	}
}

func TestSync_ReplacesLocalCache(t *testing.T) {
	st := openStore(t)
	src := testutil.NewFakeEventSource(fairDoc())
	c := newCoordinator(t, src, st, "run-1")

	res, err := c.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 1, res.Count)
	assert.False(t, res.Shared)
	assert.Equal(t, epoch, res.StartedAt)
	assert.Equal(t, epoch.Add(time.Second), res.FinishedAt)

	events, err := st.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.Event{
		ID:          events[0].ID,
		Title:       "Fair",
		Time:        "10:00",
		Place:       "Quad",
		Description: "Job fair",
	}, events[0])
	assert.Equal(t, event.Fingerprint(events), res.Fingerprint)
}

func TestSync_EmptyDocumentGetsDefaults(t *testing.T) {
	st := openStore(t)
	c := newCoordinator(t, testutil.NewFakeEventSource(event.Document{}), st, "run-1")

	_, err := c.Sync(context.Background())
	require.NoError(t, err)

	events, err := st.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.DefaultTitle, events[0].Title)
	assert.Equal(t, event.DefaultTime, events[0].Time)
	assert.Equal(t, event.DefaultPlace, events[0].Place)
	assert.Equal(t, event.DefaultDescription, events[0].Description)
}

func TestSync_EmptyRemoteClearsCache(t *testing.T) {
	st := openStore(t)
	src := testutil.NewFakeEventSource(fairDoc())
	c := newCoordinator(t, src, st, "run-1", "run-2")

	_, err := c.Sync(context.Background())
	require.NoError(t, err)

	src.SetDocuments()
	res, err := c.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)

	events, err := st.Events(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSync_Idempotent(t *testing.T) {
	st := openStore(t)
	src := testutil.NewFakeEventSource(fairDoc(), event.Document{"title": "Talk"})
	c := newCoordinator(t, src, st, "run-1", "run-2")

	first, err := c.Sync(context.Background())
	require.NoError(t, err)
	before, err := st.Events(context.Background())
	require.NoError(t, err)

	second, err := c.Sync(context.Background())
	require.NoError(t, err)
	after, err := st.Events(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, testutil.StripIDs(before), testutil.StripIDs(after))

	n, err := st.CountSyncRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSync_FetchFailureLeavesCacheUntouched(t *testing.T) {
	st := openStore(t)
	src := testutil.NewFakeEventSource(fairDoc())
	c := newCoordinator(t, src, st, "run-1", "run-2")

	_, err := c.Sync(context.Background())
	require.NoError(t, err)
	before, err := st.Events(context.Background())
	require.NoError(t, err)

	boom := errors.New("network down")
	src.SetError(boom)

	_, err = c.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fetch remote events")

	after, err := st.Events(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	last, ok, err := st.LastSyncRun(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-1", last.ID)
}

func TestRefresh_SwallowsAndLogsFailure(t *testing.T) {
	st := openStore(t)
	src := testutil.NewFakeEventSource()
	src.SetError(errors.New("timeout"))

	var logs bytes.Buffer
	c := New(src, st,
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithRunIDGenerator(NewFixedGenerator("run-1")),
	)

	assert.NotPanics(t, func() { c.Refresh(context.Background()) })
	assert.Contains(t, logs.String(), "event sync failed")
	assert.Contains(t, logs.String(), "timeout")

	events, err := st.Events(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

type failingStore struct {
	Store
	err error
}

func (f failingStore) ReplaceEventsAtomic(context.Context, []event.Event, store.SyncRun) ([]event.Event, error) {
	return nil, f.err
}

func TestSync_StoreFailureIsWrapped(t *testing.T) {
	st := openStore(t)
	boom := errors.New("disk full")
	c := newCoordinator(t, testutil.NewFakeEventSource(fairDoc()), failingStore{Store: st, err: boom}, "run-1")

	_, err := c.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "replace local events")
}

func TestSync_OverlappingCallsShareOneCycle(t *testing.T) {
	st := openStore(t)
	src := testutil.NewFakeEventSource(fairDoc())
	src.Gate = make(chan struct{})
	c := newCoordinator(t, src, st, "run-1", "run-2")

	const callers = 5
	results := make([]Result, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Sync(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return src.Calls() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(src.Gate)
	wg.Wait()

	assert.Equal(t, 1, src.Calls())
	shared := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "run-1", results[i].RunID)
		if results[i].Shared {
			shared++
		}
	}
	assert.Equal(t, callers, shared)

	n, err := st.CountSyncRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStart_RunsInitialRefreshOnce(t *testing.T) {
	st := openStore(t)
	src := testutil.NewFakeEventSource(fairDoc())
	c := newCoordinator(t, src, st, "run-1")

	done := c.Start(context.Background())
	again := c.Start(context.Background())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("initial refresh did not finish")
	}
	<-again

	assert.Equal(t, 1, src.Calls())
	events, err := st.Events(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestStart_FailureStillCloses(t *testing.T) {
	st := openStore(t)
	src := testutil.NewFakeEventSource()
	src.SetError(errors.New("offline"))
	c := newCoordinator(t, src, st, "run-1")

	select {
	case <-c.Start(context.Background()):
	case <-time.After(2 * time.Second):
		t.Fatal("initial refresh did not finish")
	}
}

func TestEvents_StreamsInitialAndUpdates(t *testing.T) {
	st := openStore(t)
	c := newCoordinator(t, testutil.NewFakeEventSource(fairDoc()), st, "run-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := c.Events(ctx)

	initial := receive(t, stream)
	assert.Empty(t, initial)

	_, err := c.Sync(context.Background())
	require.NoError(t, err)

	updated := receive(t, stream)
	require.Len(t, updated, 1)
	assert.Equal(t, "Fair", updated[0].Title)
}

func receive(t *testing.T, ch <-chan []event.Event) []event.Event {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "stream closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for events")
		return nil
	}
}
