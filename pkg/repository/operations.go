package repository

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitasync/internal/execshell"
	"github.com/temirov/gitasync/pkg/gitstatus"
)

const (
	statusOperationNameConstant = "status"
	initOperationNameConstant   = "init"
	cloneOperationNameConstant  = "clone"
	addOperationNameConstant    = "add"
	commitOperationNameConstant = "commit"
	pushOperationNameConstant   = "push"
)

const (
	gitStatusSubcommandConstant             = "status"
	gitInitSubcommandConstant               = "init"
	gitCloneSubcommandConstant              = "clone"
	gitAddSubcommandConstant                = "add"
	gitCommitSubcommandConstant             = "commit"
	gitPushSubcommandConstant               = "push"
	gitQuietFlagConstant                    = "-q"
	gitBareFlagConstant                     = "--bare"
	gitAllFlagConstant                      = "--all"
	gitPruneFlagConstant                    = "--prune"
	gitMessageFlagConstant                  = "-m"
	gitSignoffFlagConstant                  = "--signoff"
	gitAllowEmptyFlagConstant               = "--allow-empty"
	gitArgumentTerminatorConstant           = "--"
	gitPorcelainFlagConstant                = "--porcelain"
	gitNullTerminatedFlagConstant           = "-z"
	gitUntrackedFilesAllFlagConstant        = "--untracked-files=all"
	gitIgnoredFlagConstant                  = "--ignored"
	directoryPermissionsConstant            = fs.FileMode(0o755)
	commitMessageForbiddenCharacterConstant = `"`
)

const (
	directoryNotEmptyMessageConstant     = "directory exists and is not empty"
	pathNotDirectoryMessageConstant      = "path exists and is not a directory"
	pathExistsMessageConstant            = "path already exists"
	pathInspectionMessageConstant        = "unable to inspect path"
	directoryCreationMessageConstant     = "unable to create directory"
	cloneSourceRequiredMessageConstant   = "clone source must be provided"
	addModeConflictMessageConstant       = "specify either all changes or file patterns, not both"
	addModeMissingMessageConstant        = "specify all changes or at least one file pattern"
	addEmptyPatternMessageConstant       = "file patterns must not be empty"
	commitMessageRequiredMessageConstant = "commit message must be provided"
	commitMessageQuoteMessageConstant    = "commit message must not contain double quotes"
	nothingToCommitMessageConstant       = "nothing to commit"
	pushRemoteRequiredMessageConstant    = "push remote must be provided"
	pushModeConflictMessageConstant      = "specify either a branch or all branches, not both"
	pushModeMissingMessageConstant       = "specify a branch or all branches"
	statusParseFailureMessageConstant    = "unable to parse status output"
	directoryCreatedLogMessageConstant   = "created repository directory"
	operationCompletedLogMessageConstant = "repository operation completed"
)

// nothingToCommitIndicators are git outputs meaning a commit had no content to record.
var nothingToCommitIndicators = []string{
	"nothing to commit",
	"nothing added to commit",
	"no changes added to commit",
}

// InitOptions configure Init.
type InitOptions struct {
	Bare bool
}

// AddOptions configure Add. Exactly one of All or Patterns must be set.
type AddOptions struct {
	All      bool
	Patterns []string
}

// CommitOptions configure Commit.
type CommitOptions struct {
	Message string
	// Sign appends a Signed-off-by trailer.
	Sign       bool
	AllowEmpty bool
}

// PushOptions configure Push. Exactly one of Branch or All must be set.
type PushOptions struct {
	Remote RemoteTarget
	Branch string
	All    bool
	Prune  bool
}

// Status runs a porcelain status query and parses it into a report of every changed, untracked and ignored path.
func (repository Repository) Status(executionContext context.Context) (gitstatus.Report, error) {
	executionResult, executionError := repository.runGit(executionContext, repository.path,
		gitStatusSubcommandConstant, gitPorcelainFlagConstant, gitNullTerminatedFlagConstant, gitUntrackedFilesAllFlagConstant, gitIgnoredFlagConstant)
	if executionError != nil {
		return nil, repository.commandError(statusOperationNameConstant, executionError)
	}

	report, parseError := gitstatus.NewDecoder(strings.NewReader(executionResult.StandardOutput)).Decode()
	if parseError != nil {
		return nil, newError(KindParse, statusOperationNameConstant, repository.path, statusParseFailureMessageConstant, parseError)
	}
	return report, nil
}

// Init creates the repository directory when missing and initializes it.
// An existing directory must be empty.
func (repository Repository) Init(executionContext context.Context, options InitOptions) error {
	pathInfo, statError := repository.fileSystem.Stat(repository.path)
	switch {
	case statError == nil:
		if !pathInfo.IsDir() {
			return newError(KindAlreadyExists, initOperationNameConstant, repository.path, pathNotDirectoryMessageConstant, nil)
		}
		entries, readError := repository.fileSystem.ReadDir(repository.path)
		if readError != nil {
			return newError(KindFileSystem, initOperationNameConstant, repository.path, pathInspectionMessageConstant, readError)
		}
		if len(entries) > 0 {
			return newError(KindAlreadyExists, initOperationNameConstant, repository.path, directoryNotEmptyMessageConstant, nil)
		}
	case errors.Is(statError, fs.ErrNotExist):
		if creationError := repository.fileSystem.MkdirAll(repository.path, directoryPermissionsConstant); creationError != nil {
			return newError(KindFileSystem, initOperationNameConstant, repository.path, directoryCreationMessageConstant, creationError)
		}
		repository.logger.Debug(directoryCreatedLogMessageConstant, zap.String(repositoryPathFieldNameConstant, repository.path))
	default:
		return newError(KindFileSystem, initOperationNameConstant, repository.path, pathInspectionMessageConstant, statError)
	}

	arguments := []string{gitInitSubcommandConstant, gitQuietFlagConstant}
	if options.Bare {
		arguments = append(arguments, gitBareFlagConstant)
	}
	if _, executionError := repository.runGit(executionContext, repository.path, arguments...); executionError != nil {
		return repository.commandError(initOperationNameConstant, executionError)
	}
	repository.logCompleted(initOperationNameConstant)
	return nil
}

// Clone clones source into the repository path, which must not exist yet.
// Git runs from the filesystem root because the destination does not exist.
func (repository Repository) Clone(executionContext context.Context, source string) error {
	trimmedSource := strings.TrimSpace(source)
	if len(trimmedSource) == 0 {
		return newError(KindInvalidArgument, cloneOperationNameConstant, repository.path, cloneSourceRequiredMessageConstant, nil)
	}

	_, statError := repository.fileSystem.Stat(repository.path)
	switch {
	case statError == nil:
		return newError(KindAlreadyExists, cloneOperationNameConstant, repository.path, pathExistsMessageConstant, nil)
	case !errors.Is(statError, fs.ErrNotExist):
		return newError(KindFileSystem, cloneOperationNameConstant, repository.path, pathInspectionMessageConstant, statError)
	}

	parentDirectory := filepath.Dir(repository.path)
	if creationError := repository.fileSystem.MkdirAll(parentDirectory, directoryPermissionsConstant); creationError != nil {
		return newError(KindFileSystem, cloneOperationNameConstant, parentDirectory, directoryCreationMessageConstant, creationError)
	}

	rootDirectory := filepath.VolumeName(repository.path) + string(filepath.Separator)
	if _, executionError := repository.runGit(executionContext, rootDirectory,
		gitCloneSubcommandConstant, gitQuietFlagConstant, gitArgumentTerminatorConstant, trimmedSource, repository.path); executionError != nil {
		return repository.commandError(cloneOperationNameConstant, executionError)
	}
	repository.logCompleted(cloneOperationNameConstant)
	return nil
}

// Add stages either every change in the work tree or the paths matching the supplied patterns.
func (repository Repository) Add(executionContext context.Context, options AddOptions) error {
	hasPatterns := len(options.Patterns) > 0
	switch {
	case options.All && hasPatterns:
		return newError(KindInvalidArgument, addOperationNameConstant, repository.path, addModeConflictMessageConstant, nil)
	case !options.All && !hasPatterns:
		return newError(KindInvalidArgument, addOperationNameConstant, repository.path, addModeMissingMessageConstant, nil)
	}
	for _, pattern := range options.Patterns {
		if len(strings.TrimSpace(pattern)) == 0 {
			return newError(KindInvalidArgument, addOperationNameConstant, repository.path, addEmptyPatternMessageConstant, nil)
		}
	}

	arguments := []string{gitAddSubcommandConstant}
	if options.All {
		arguments = append(arguments, gitAllFlagConstant)
	} else {
		arguments = append(arguments, gitArgumentTerminatorConstant)
		arguments = append(arguments, options.Patterns...)
	}
	if _, executionError := repository.runGit(executionContext, repository.path, arguments...); executionError != nil {
		return repository.commandError(addOperationNameConstant, executionError)
	}
	repository.logCompleted(addOperationNameConstant)
	return nil
}

// Commit records the staged changes. A commit with nothing to record fails with KindInvalidState
// and the message "nothing to commit" unless AllowEmpty is set.
func (repository Repository) Commit(executionContext context.Context, options CommitOptions) error {
	if len(strings.TrimSpace(options.Message)) == 0 {
		return newError(KindInvalidArgument, commitOperationNameConstant, repository.path, commitMessageRequiredMessageConstant, nil)
	}
	if strings.Contains(options.Message, commitMessageForbiddenCharacterConstant) {
		return newError(KindInvalidArgument, commitOperationNameConstant, repository.path, commitMessageQuoteMessageConstant, nil)
	}

	arguments := []string{gitCommitSubcommandConstant}
	if options.Sign {
		arguments = append(arguments, gitSignoffFlagConstant)
	}
	arguments = append(arguments, gitMessageFlagConstant, options.Message)
	if options.AllowEmpty {
		arguments = append(arguments, gitAllowEmptyFlagConstant)
	}

	if _, executionError := repository.runGit(executionContext, repository.path, arguments...); executionError != nil {
		return repository.classifyCommitError(executionError)
	}
	repository.logCompleted(commitOperationNameConstant)
	return nil
}

// Push sends either one branch or every branch to the remote target.
func (repository Repository) Push(executionContext context.Context, options PushOptions) error {
	if options.Remote == nil || len(strings.TrimSpace(options.Remote.PushTarget())) == 0 {
		return newError(KindInvalidArgument, pushOperationNameConstant, repository.path, pushRemoteRequiredMessageConstant, nil)
	}
	branch := strings.TrimSpace(options.Branch)
	hasBranch := len(branch) > 0
	switch {
	case options.All && hasBranch:
		return newError(KindInvalidArgument, pushOperationNameConstant, repository.path, pushModeConflictMessageConstant, nil)
	case !options.All && !hasBranch:
		return newError(KindInvalidArgument, pushOperationNameConstant, repository.path, pushModeMissingMessageConstant, nil)
	}

	arguments := []string{gitPushSubcommandConstant, gitQuietFlagConstant}
	if options.Prune {
		arguments = append(arguments, gitPruneFlagConstant)
	}
	arguments = append(arguments, strings.TrimSpace(options.Remote.PushTarget()))
	if options.All {
		arguments = append(arguments, gitAllFlagConstant)
	} else {
		arguments = append(arguments, branch)
	}

	if _, executionError := repository.runGit(executionContext, repository.path, arguments...); executionError != nil {
		return repository.commandError(pushOperationNameConstant, executionError)
	}
	repository.logCompleted(pushOperationNameConstant)
	return nil
}

func (repository Repository) runGit(executionContext context.Context, workingDirectory string, arguments ...string) (execshell.ExecutionResult, error) {
	return repository.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     workingDirectory,
		EnvironmentVariables: repository.environment,
	})
}

func (repository Repository) commandError(operation string, executionError error) *Error {
	return newError(KindCommand, operation, repository.path, executionError.Error(), executionError)
}

func (repository Repository) classifyCommitError(executionError error) *Error {
	var commandFailure execshell.CommandFailedError
	if errors.As(executionError, &commandFailure) {
		combinedOutput := strings.ToLower(commandFailure.Result.StandardOutput + "\n" + commandFailure.Result.StandardError)
		for _, indicator := range nothingToCommitIndicators {
			if strings.Contains(combinedOutput, indicator) {
				return newError(KindInvalidState, commitOperationNameConstant, repository.path, nothingToCommitMessageConstant, executionError)
			}
		}
	}
	return repository.commandError(commitOperationNameConstant, executionError)
}

func (repository Repository) logCompleted(operation string) {
	repository.logger.Debug(operationCompletedLogMessageConstant,
		zap.String(operationFieldNameConstant, operation),
		zap.String(repositoryPathFieldNameConstant, repository.path),
	)
}
