package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, ch <-chan Event, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "event channel closed early")
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestStartWatcher_ReportsCreate(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{Dir: dir, Ext: "pdf"}, nil)
	require.NoError(t, err)

	path := filepath.Join(dir, "new.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	ev := waitFor(t, events, func(e Event) bool { return e.Path == path && e.Kind == EventCreated })
	assert.Equal(t, EventCreated, ev.Kind)
}

func TestStartWatcher_InitialScan(t *testing.T) {
	dir := t.TempDir()
	existing := writeDoc(t, dir, "old.pdf")
	writeDoc(t, dir, ".hidden.pdf")
	writeDoc(t, dir, "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Dir: dir, Ext: "pdf", InitialScan: true}, nil)
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, Event{Path: existing, Kind: EventCreated}, ev)
	case <-time.After(5 * time.Second):
		t.Fatal("initial scan produced nothing")
	}
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStartWatcher_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events, errs, err := StartWatcher(ctx, WatchConfig{Dir: t.TempDir()}, nil)
	require.NoError(t, err)

	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	_, ok := <-errs
	assert.False(t, ok)
}

func TestStartWatcher_RejectsBadDirectory(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)

	_, _, err = StartWatcher(context.Background(), WatchConfig{Dir: filepath.Join(t.TempDir(), "missing")}, nil)
	assert.Error(t, err)

	file := writeDoc(t, t.TempDir(), "a.pdf")
	_, _, err = StartWatcher(context.Background(), WatchConfig{Dir: file}, nil)
	assert.Error(t, err)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, EventCreated, kindOf(fsnotify.Create|fsnotify.Write))
	assert.Equal(t, EventRenamed, kindOf(fsnotify.Rename))
	assert.Equal(t, EventRemoved, kindOf(fsnotify.Remove))
	assert.Equal(t, EventWritten, kindOf(fsnotify.Write))
	assert.Equal(t, EventChmod, kindOf(fsnotify.Chmod))
}
