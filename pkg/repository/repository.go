package repository

import (
	"maps"
	"strings"

	"go.uber.org/zap"
)

const (
	repositoryPathRequiredMessageConstant    = "repository path must be provided"
	repositoryPathResolutionMessageConstant  = "unable to resolve repository path"
	gitTerminalPromptEnvironmentNameConstant = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableValue = "0"
	constructorOperationNameConstant         = "open"
	repositoryPathFieldNameConstant          = "repository_path"
	operationFieldNameConstant               = "operation"
)

// RemoteTarget names the destination of a push: a configured remote or another repository.
type RemoteTarget interface {
	PushTarget() string
}

// RemoteName is a remote configured in the repository, such as "origin", or a URL.
type RemoteName string

// PushTarget implements RemoteTarget.
func (remoteName RemoteName) PushTarget() string {
	return strings.TrimSpace(string(remoteName))
}

// Repository is an immutable handle on a repository path. Construct it with New.
type Repository struct {
	path        string
	executor    GitExecutor
	fileSystem  FileSystem
	logger      *zap.Logger
	environment map[string]string
}

// New constructs a Repository for path, resolved to an absolute path. The path need not exist yet.
func New(path string, dependencies Dependencies) (Repository, error) {
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return Repository{}, newError(KindInvalidArgument, constructorOperationNameConstant, path, repositoryPathRequiredMessageConstant, nil)
	}

	logger := resolveLogger(dependencies.Logger)
	fileSystem := resolveFileSystem(dependencies.FileSystem)
	absolutePath, resolutionError := fileSystem.Abs(trimmedPath)
	if resolutionError != nil {
		return Repository{}, newError(KindFileSystem, constructorOperationNameConstant, trimmedPath, repositoryPathResolutionMessageConstant, resolutionError)
	}

	executor, executorError := resolveGitExecutor(dependencies.GitExecutor, logger)
	if executorError != nil {
		return Repository{}, executorError
	}

	environment := map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableValue}
	maps.Copy(environment, dependencies.Environment)

	return Repository{
		path:        absolutePath,
		executor:    executor,
		fileSystem:  fileSystem,
		logger:      logger,
		environment: environment,
	}, nil
}

// Path returns the absolute repository path.
func (repository Repository) Path() string {
	return repository.path
}

// PushTarget implements RemoteTarget so one repository can push directly into another.
func (repository Repository) PushTarget() string {
	return repository.path
}

// String implements fmt.Stringer.
func (repository Repository) String() string {
	return repository.path
}
