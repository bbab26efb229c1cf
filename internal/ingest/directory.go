package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-tracker/constants"
)

// ProcessDirectory walks root, skips hidden entries if requested, and runs
// Process on every document in lexical order. Cancelling ctx stops the walk
// but the document in progress is finished. Per-file problems are reported
// in the outcomes; only a walk failure or cancellation is returned as an error.
func (c *Controller) ProcessDirectory(ctx context.Context, root string, skipHidden bool) ([]Outcome, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Outcome
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			c.logger.Warn("skipping unreadable entry", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}
		if path != root && skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !constants.HasExt(path, c.cfg.DocumentExt) {
			return nil
		}
		stats.Matched++

		out := c.Process(context.WithoutCancel(ctx), path)
		results = append(results, out)
		switch out.State {
		case constants.StateAppended:
			stats.Appended++
		case constants.StateFailed:
			stats.Failed++
		default:
			stats.Skipped++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
