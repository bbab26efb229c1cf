package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig selects the folder to watch and how events are delivered.
type WatchConfig struct {
	Dir         string // watched folder (not recursive)
	Ext         string // documents to report on initial scan
	InitialScan bool   // if true, emit Created for documents already present
	QueueSize   int    // event channel buffer, default 256
}

// StartWatcher watches cfg.Dir and reports every change as an Event. Sends
// block while the channel is full so no arrival is lost. Both channels are
// closed once ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan Event, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		logger.Error("watcher start failed: no directory provided")
		return nil, nil, errors.New("no directory provided")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		logger.Error("watcher start failed", "dir", cfg.Dir, "error", err)
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, errors.New(cfg.Dir + " is not a directory")
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}
	// Watch before scanning so a file landing in between is still reported.
	if err := w.Add(cfg.Dir); err != nil {
		logger.Error("failed to watch directory", "dir", cfg.Dir, "error", err)
		_ = w.Close()
		return nil, nil, err
	}

	evCh := make(chan Event, size)
	errCh := make(chan error, 1)

	send := func(ev Event) bool {
		select {
		case evCh <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("failed to close watcher", "error", err)
			}
		}()

		if cfg.InitialScan {
			for _, p := range scanDir(cfg.Dir, cfg.Ext, logger) {
				if !send(Event{Path: p, Kind: EventCreated}) {
					return
				}
			}
		}
		logger.Info("watching directory", "dir", cfg.Dir)

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if !send(Event{Path: e.Name, Kind: kindOf(e.Op)}) {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// kindOf picks a single kind for ops that fsnotify reports together.
func kindOf(op fsnotify.Op) EventKind {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreated
	case op.Has(fsnotify.Rename):
		return EventRenamed
	case op.Has(fsnotify.Remove):
		return EventRemoved
	case op.Has(fsnotify.Write):
		return EventWritten
	default:
		return EventChmod
	}
}

func scanDir(dir, ext string, logger *slog.Logger) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("initial scan failed", "dir", dir, "error", err)
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if Matches(p, ext) {
			out = append(out, p)
		}
	}
	return out
}
