// Package janitor runs the cron-scheduled sweep that deletes downloaded
// temp files once they age past a retention window, so //download-file
// traffic doesn't grow the download directory without bound.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/robfig/cron/v3"
)

// osReadDir and osStat are replaceable for testing error paths.
var (
	osReadDir = os.ReadDir
	osStat    = os.Stat
	osRemove  = os.Remove
)

// Config configures a Janitor.
type Config struct {
	Dir       string
	Retention time.Duration
	Schedule  string
}

// Janitor wraps a robfig/cron schedule around one sweep job. A per-run
// mutex, held with TryLock, skips a tick if the previous sweep is still
// running rather than letting two sweeps race on the same directory.
type Janitor struct {
	dir       string
	retention time.Duration
	schedule  string

	runLock sync.Mutex
	cron    *cron.Cron
}

// New creates a Janitor. Call Start to begin sweeping on its schedule.
func New(cfg Config) *Janitor {
	return &Janitor{
		dir:       cfg.Dir,
		retention: cfg.Retention,
		schedule:  cfg.Schedule,
	}
}

// Start registers the sweep against its cron schedule and begins running
// it. Returns an error if schedule doesn't parse.
func (j *Janitor) Start() error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	j.cron = cron.New(cron.WithParser(parser))

	_, err := j.cron.AddFunc(j.schedule, func() {
		if !j.runLock.TryLock() {
			slog.Warn("janitor: previous sweep still running, skipping tick",
				"component", "janitor", "operation", "sweep")
			return
		}
		defer j.runLock.Unlock()

		n, err := j.sweep()
		if err != nil {
			slog.Error("janitor: sweep failed",
				"component", "janitor", "operation", "sweep", "error", err)
			return
		}
		if n > 0 {
			slog.Info("janitor: sweep removed stale files",
				"component", "janitor", "operation", "sweep", "removed", n)
		}
	})
	if err != nil {
		return fmt.Errorf("janitor: invalid schedule %q: %w", j.schedule, err)
	}

	j.cron.Start()
	slog.Info("janitor: started", "component", "janitor", "operation", "start",
		"dir", j.dir, "schedule", j.schedule, "retention", j.retention)
	return nil
}

// Stop stops the schedule, then waits for any in-flight sweep to finish,
// returning ctx's error if ctx ends first.
func (j *Janitor) Stop(ctx context.Context) error {
	if j.cron == nil {
		return nil
	}
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	slog.Info("janitor: stopped", "component", "janitor", "operation", "stop")
	return nil
}

// Sweep runs one pass over Dir synchronously, outside the cron schedule.
// Exported so callers (tests, and a possible future "clean now" admin
// action) can trigger a sweep without waiting for a tick.
func (j *Janitor) Sweep() (int, error) {
	return j.sweep()
}

func (j *Janitor) sweep() (int, error) {
	entries, err := osReadDir(j.dir)
	if err != nil {
		return 0, fmt.Errorf("janitor: read dir: %w", err)
	}

	cutoff := time.Now().Add(-j.retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isDownloadArtifact(entry.Name()) {
			continue
		}
		path := filepath.Join(j.dir, entry.Name())
		info, err := osStat(path)
		if err != nil {
			slog.Warn("janitor: stat failed, skipping",
				"component", "janitor", "operation", "sweep", "path", path, "error", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := osRemove(path); err != nil {
			slog.Warn("janitor: remove failed",
				"component", "janitor", "operation", "sweep", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// isDownloadArtifact reports whether name matches the UUID-plus-extension
// naming telegram.DownloadToFile gives every file it writes, so a sweep
// never removes anything the daemon didn't create itself even if Dir is
// shared with something else.
func isDownloadArtifact(name string) bool {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	_, err := uuid.FromString(base)
	return err == nil
}
