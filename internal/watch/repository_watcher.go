package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	// DefaultDebounceDelay is the quiet period applied when no delay is configured.
	DefaultDebounceDelay = 350 * time.Millisecond

	gitDirectoryNameConstant        = ".git"
	lockFileExtensionConstant       = ".lock"
	ipcFileExtensionConstant        = ".ipc"
	watcherCreationTemplateConstant = "unable to create filesystem watcher: %w"
	watchPathTemplateConstant       = "unable to watch %s: %w"
	watcherEventLogMessageConstant  = "filesystem change observed"
	watcherErrorLogMessageConstant  = "filesystem watcher error"
	watchedPathLogMessageConstant   = "watching path"
	pathFieldNameConstant           = "path"
	operationFieldNameConstant      = "operation"
)

// RepositoryWatcher emits a notification on Changes whenever the repository's top-level
// work tree or git directory settles after a burst of filesystem activity.
type RepositoryWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	changes   chan struct{}
	logger    *zap.Logger
}

// NewRepositoryWatcher starts watching repositoryPath. A non-positive delay selects DefaultDebounceDelay.
func NewRepositoryWatcher(repositoryPath string, delay time.Duration, logger *zap.Logger) (*RepositoryWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}

	fileSystemWatcher, creationError := fsnotify.NewWatcher()
	if creationError != nil {
		return nil, fmt.Errorf(watcherCreationTemplateConstant, creationError)
	}

	for _, watchedPath := range watchPaths(repositoryPath) {
		if addError := fileSystemWatcher.Add(watchedPath); addError != nil {
			return nil, fmt.Errorf(watchPathTemplateConstant, watchedPath, errors.Join(addError, fileSystemWatcher.Close()))
		}
		logger.Debug(watchedPathLogMessageConstant, zap.String(pathFieldNameConstant, watchedPath))
	}

	repositoryWatcher := &RepositoryWatcher{
		watcher: fileSystemWatcher,
		changes: make(chan struct{}, 1),
		logger:  logger,
	}
	repositoryWatcher.debouncer = NewDebouncer(delay, repositoryWatcher.signal)
	return repositoryWatcher, nil
}

// Changes delivers at most one pending notification; bursts coalesce.
func (repositoryWatcher *RepositoryWatcher) Changes() <-chan struct{} {
	return repositoryWatcher.changes
}

// Run forwards filesystem events until the context ends or the watcher is closed.
func (repositoryWatcher *RepositoryWatcher) Run(executionContext context.Context) error {
	for {
		select {
		case <-executionContext.Done():
			return nil
		case event, open := <-repositoryWatcher.watcher.Events:
			if !open {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(event.Name) {
				continue
			}
			repositoryWatcher.logger.Debug(watcherEventLogMessageConstant,
				zap.String(pathFieldNameConstant, event.Name),
				zap.String(operationFieldNameConstant, event.Op.String()),
			)
			repositoryWatcher.debouncer.Trigger()
		case watchError, open := <-repositoryWatcher.watcher.Errors:
			if !open {
				return nil
			}
			repositoryWatcher.logger.Warn(watcherErrorLogMessageConstant, zap.Error(watchError))
		}
	}
}

// Close stops watching and cancels pending notifications.
func (repositoryWatcher *RepositoryWatcher) Close() error {
	repositoryWatcher.debouncer.Stop()
	return repositoryWatcher.watcher.Close()
}

func (repositoryWatcher *RepositoryWatcher) signal() {
	select {
	case repositoryWatcher.changes <- struct{}{}:
	default:
	}
}

func watchPaths(repositoryPath string) []string {
	watchedPaths := []string{repositoryPath}
	gitDirectory := filepath.Join(repositoryPath, gitDirectoryNameConstant)
	if directoryInfo, statError := os.Stat(gitDirectory); statError == nil && directoryInfo.IsDir() {
		watchedPaths = append(watchedPaths, gitDirectory)
	}
	return watchedPaths
}

// shouldIgnoreWatchPath drops lock and IPC churn. Index rewrites still signal, including the ones a
// status query makes while refreshing stat data; consumers compare results before re-rendering.
func shouldIgnoreWatchPath(name string) bool {
	extension := strings.ToLower(filepath.Ext(name))
	return extension == lockFileExtensionConstant || extension == ipcFileExtensionConstant
}
