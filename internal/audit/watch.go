package audit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	pathutils "github.com/temirov/atlas-audit/internal/utils/path"
)

const (
	watcherCreationErrorTemplateConstant = "failed to create watcher: %w"
	watcherNoDirectoriesMessageConstant  = "no existing directories to watch"
	watcherStartedLogMessageConstant     = "watching for changes"
	watcherErrorLogMessageConstant       = "watcher error"
	watcherRerunLogMessageConstant       = "change detected, re-running audit"
	watcherRunFailedLogMessageConstant   = "audit run failed"
	logFieldDirectoryCountConstant       = "directories"
	logFieldEventConstant                = "event"
)

var watchPathSanitizer = pathutils.NewPathSanitizerWithConfiguration(nil, pathutils.PathSanitizerConfiguration{PruneNestedPaths: true})

// Watcher invokes a callback after bursts of filesystem activity settle.
type Watcher struct {
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher constructs a Watcher with the provided debounce interval.
func NewWatcher(debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultWatchDebounceConstant
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{debounce: debounce, logger: logger}
}

// Watch recursively watches roots and calls onChange once per debounced burst of events.
// It returns nil when executionContext is cancelled.
func (watcher *Watcher) Watch(executionContext context.Context, roots []string, onChange func()) error {
	fileWatcher, creationError := fsnotify.NewWatcher()
	if creationError != nil {
		return fmt.Errorf(watcherCreationErrorTemplateConstant, creationError)
	}
	defer fileWatcher.Close()

	watchedDirectories := 0
	for _, root := range watchPathSanitizer.Sanitize(roots) {
		watchedDirectories += addDirectoryTree(fileWatcher, root)
	}
	if watchedDirectories == 0 {
		return errors.New(watcherNoDirectoriesMessageConstant)
	}
	watcher.logger.Info(watcherStartedLogMessageConstant, zap.Int(logFieldDirectoryCountConstant, watchedDirectories))

	var debounceTimer *time.Timer
	var debounceChannel <-chan time.Time
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-executionContext.Done():
			return nil
		case event, open := <-fileWatcher.Events:
			if !open {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Has(fsnotify.Create) {
				addDirectoryTree(fileWatcher, event.Name)
			}
			if debounceTimer == nil {
				debounceTimer = time.NewTimer(watcher.debounce)
			} else {
				if !debounceTimer.Stop() {
					select {
					case <-debounceTimer.C:
					default:
					}
				}
				debounceTimer.Reset(watcher.debounce)
			}
			debounceChannel = debounceTimer.C
			watcher.logger.Debug(watcherRerunLogMessageConstant, zap.String(logFieldEventConstant, event.String()))
		case watchError, open := <-fileWatcher.Errors:
			if !open {
				return nil
			}
			watcher.logger.Warn(watcherErrorLogMessageConstant, zap.Error(watchError))
		case <-debounceChannel:
			debounceChannel = nil
			onChange()
		}
	}
}

func addDirectoryTree(fileWatcher *fsnotify.Watcher, root string) int {
	added := 0
	_ = filepath.WalkDir(root, func(path string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil || directoryEntry == nil || !directoryEntry.IsDir() {
			return nil
		}
		if addError := fileWatcher.Add(path); addError == nil {
			added++
		}
		return nil
	})
	return added
}

// Watch runs the audit once, then re-runs it after every debounced change under the project's
// scan roots and source directories until executionContext is cancelled. Threshold breaches and
// report failures during re-runs are logged rather than returned.
func (service *Service) Watch(executionContext context.Context, options CommandOptions, debounce time.Duration) error {
	if _, runError := service.Run(executionContext, options); runError != nil {
		var thresholdError ScoreBelowThresholdError
		if !errors.As(runError, &thresholdError) {
			return runError
		}
		service.logger.Warn(watcherRunFailedLogMessageConstant, zap.Error(runError))
	}

	watcher := NewWatcher(debounce, service.logger)
	return watcher.Watch(executionContext, service.watchRoots(options.ProjectRoot), func() {
		if _, runError := service.Run(executionContext, options); runError != nil {
			service.logger.Warn(watcherRunFailedLogMessageConstant, zap.Error(runError))
		}
	})
}

func (service *Service) watchRoots(projectRoot string) []string {
	environment := service.environment(projectRoot)
	roots := environment.ScanRootPaths(nil)
	for _, sourcePath := range environment.Sources {
		roots = append(roots, filepath.Dir(sourcePath))
	}
	return roots
}
