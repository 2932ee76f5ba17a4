package alerting

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// PolicyWatcher reloads the gate policy when its file changes on disk.
// Invalid edits are logged and the previous policy stays in effect.
type PolicyWatcher struct {
	path    string
	gate    *Gate
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	// debounce coalesces bursts of write events from editors that save
	// in multiple steps.
	debounce time.Duration
}

// NewPolicyWatcher creates a watcher for the given policy file.
func NewPolicyWatcher(path string, gate *Gate, logger *zap.Logger) (*PolicyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	// Watch the directory rather than the file so replace-by-rename
	// saves keep working.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch policy directory: %w", err)
	}

	return &PolicyWatcher{
		path:     path,
		gate:     gate,
		logger:   logger,
		watcher:  w,
		debounce: 200 * time.Millisecond,
	}, nil
}

// Run watches for changes until the context is canceled.
func (pw *PolicyWatcher) Run(ctx context.Context) error {
	defer pw.watcher.Close()

	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(pw.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(pw.debounce)
			}
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return nil
			}
			pw.logger.Warn("policy watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			pw.reload()
		}
	}
}

// reload applies the policy file if it parses and validates.
func (pw *PolicyWatcher) reload() {
	policy, err := LoadPolicyFromFile(pw.path)
	if err != nil {
		pw.logger.Warn("policy reload failed, keeping previous policy",
			zap.String("path", pw.path),
			zap.Error(err),
		)
		return
	}

	pw.gate.SetPolicy(policy)
	pw.logger.Info("policy reloaded",
		zap.String("path", pw.path),
		zap.Float64("value_change_threshold", policy.ValueChangeThreshold),
	)
}
