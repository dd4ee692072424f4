package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitasync/internal/execshell"
	"github.com/temirov/gitasync/pkg/gitstatus"
	"github.com/temirov/gitasync/pkg/repository"
)

type recordingGitExecutor struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.CommandDetails
}

func (executor *recordingGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedCommands = append(executor.recordedCommands, details)
	return executor.executionResult, executor.executionError
}

func newTestRepository(testInstance *testing.T, path string, executor *recordingGitExecutor) repository.Repository {
	testInstance.Helper()
	testRepository, creationError := repository.New(path, repository.Dependencies{
		GitExecutor: executor,
		Environment: map[string]string{"GIT_AUTHOR_NAME": "Test Author"},
	})
	require.NoError(testInstance, creationError)
	return testRepository
}

func requireKind(testInstance *testing.T, err error, expectedKind repository.ErrorKind) {
	testInstance.Helper()
	require.Error(testInstance, err)
	kind, found := repository.KindOf(err)
	require.True(testInstance, found, "expected a repository error, got %v", err)
	require.Equal(testInstance, expectedKind, kind)
}

func TestNewRejectsEmptyPathAndResolvesAbsolutePath(testInstance *testing.T) {
	_, creationError := repository.New("  ", repository.Dependencies{GitExecutor: &recordingGitExecutor{}})
	requireKind(testInstance, creationError, repository.KindInvalidArgument)

	relativeRepository := newTestRepository(testInstance, "relative/repo", &recordingGitExecutor{})
	require.True(testInstance, filepath.IsAbs(relativeRepository.Path()))
	require.Equal(testInstance, relativeRepository.Path(), relativeRepository.PushTarget())
}

func TestOperationsBuildGitInvocations(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	originPath := filepath.Join(testInstance.TempDir(), "origin.git")

	testCases := []struct {
		name              string
		invoke            func(repository.Repository) error
		expectedArguments []string
		expectedDirectory string
	}{
		{
			name: "add_all",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Add(context.Background(), repository.AddOptions{All: true})
			},
			expectedArguments: []string{"add", "--all"},
		},
		{
			name: "add_patterns",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Add(context.Background(), repository.AddOptions{Patterns: []string{"*.go", "-dash.txt"}})
			},
			expectedArguments: []string{"add", "--", "*.go", "-dash.txt"},
		},
		{
			name: "commit_signed_allow_empty",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Commit(context.Background(), repository.CommitOptions{Message: "Release v1", Sign: true, AllowEmpty: true})
			},
			expectedArguments: []string{"commit", "--signoff", "-m", "Release v1", "--allow-empty"},
		},
		{
			name: "commit_plain",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Commit(context.Background(), repository.CommitOptions{Message: "Fix typo"})
			},
			expectedArguments: []string{"commit", "-m", "Fix typo"},
		},
		{
			name: "push_branch_to_named_remote",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Push(context.Background(), repository.PushOptions{Remote: repository.RemoteName("origin"), Branch: "main"})
			},
			expectedArguments: []string{"push", "-q", "origin", "main"},
		},
		{
			name: "push_all_with_prune",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Push(context.Background(), repository.PushOptions{Remote: repository.RemoteName("origin"), All: true, Prune: true})
			},
			expectedArguments: []string{"push", "-q", "--prune", "origin", "--all"},
		},
		{
			name: "push_to_repository_handle",
			invoke: func(testRepository repository.Repository) error {
				originRepository := newTestRepository(testInstance, originPath, &recordingGitExecutor{})
				return testRepository.Push(context.Background(), repository.PushOptions{Remote: originRepository, Branch: "feature"})
			},
			expectedArguments: []string{"push", "-q", originPath, "feature"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingGitExecutor{}
			testRepository := newTestRepository(testInstance, workingDirectory, executor)

			require.NoError(testInstance, testCase.invoke(testRepository))
			require.Len(testInstance, executor.recordedCommands, 1)
			recordedCommand := executor.recordedCommands[0]
			require.Equal(testInstance, testCase.expectedArguments, recordedCommand.Arguments)
			require.Equal(testInstance, workingDirectory, recordedCommand.WorkingDirectory)
			require.Equal(testInstance, "0", recordedCommand.EnvironmentVariables["GIT_TERMINAL_PROMPT"])
			require.Equal(testInstance, "Test Author", recordedCommand.EnvironmentVariables["GIT_AUTHOR_NAME"])
		})
	}
}

func TestValidationFailuresDoNotInvokeGit(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()

	testCases := []struct {
		name         string
		invoke       func(repository.Repository) error
		expectedKind repository.ErrorKind
	}{
		{
			name: "add_without_mode",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Add(context.Background(), repository.AddOptions{})
			},
			expectedKind: repository.KindInvalidArgument,
		},
		{
			name: "add_with_both_modes",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Add(context.Background(), repository.AddOptions{All: true, Patterns: []string{"a.txt"}})
			},
			expectedKind: repository.KindInvalidArgument,
		},
		{
			name: "add_with_blank_pattern",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Add(context.Background(), repository.AddOptions{Patterns: []string{" "}})
			},
			expectedKind: repository.KindInvalidArgument,
		},
		{
			name: "commit_with_double_quote",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Commit(context.Background(), repository.CommitOptions{Message: `say "hi"`})
			},
			expectedKind: repository.KindInvalidArgument,
		},
		{
			name: "commit_without_message",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Commit(context.Background(), repository.CommitOptions{Message: "   "})
			},
			expectedKind: repository.KindInvalidArgument,
		},
		{
			name: "push_without_branch_or_all",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Push(context.Background(), repository.PushOptions{Remote: repository.RemoteName("origin")})
			},
			expectedKind: repository.KindInvalidArgument,
		},
		{
			name: "push_with_branch_and_all",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Push(context.Background(), repository.PushOptions{Remote: repository.RemoteName("origin"), Branch: "main", All: true})
			},
			expectedKind: repository.KindInvalidArgument,
		},
		{
			name: "push_without_remote",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Push(context.Background(), repository.PushOptions{Branch: "main"})
			},
			expectedKind: repository.KindInvalidArgument,
		},
		{
			name: "clone_without_source",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Clone(context.Background(), "")
			},
			expectedKind: repository.KindInvalidArgument,
		},
		{
			name: "clone_onto_existing_path",
			invoke: func(testRepository repository.Repository) error {
				return testRepository.Clone(context.Background(), "https://example.com/team/app.git")
			},
			expectedKind: repository.KindAlreadyExists,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingGitExecutor{}
			testRepository := newTestRepository(testInstance, workingDirectory, executor)

			operationError := testCase.invoke(testRepository)
			requireKind(testInstance, operationError, testCase.expectedKind)
			require.Empty(testInstance, executor.recordedCommands)
		})
	}
}

func TestInitPreconditions(testInstance *testing.T) {
	testInstance.Run("creates_missing_directory", func(testInstance *testing.T) {
		targetPath := filepath.Join(testInstance.TempDir(), "nested", "repo")
		executor := &recordingGitExecutor{}
		testRepository := newTestRepository(testInstance, targetPath, executor)

		require.NoError(testInstance, testRepository.Init(context.Background(), repository.InitOptions{Bare: true}))
		require.DirExists(testInstance, targetPath)
		require.Len(testInstance, executor.recordedCommands, 1)
		require.Equal(testInstance, []string{"init", "-q", "--bare"}, executor.recordedCommands[0].Arguments)
		require.Equal(testInstance, targetPath, executor.recordedCommands[0].WorkingDirectory)
	})

	testInstance.Run("accepts_empty_directory", func(testInstance *testing.T) {
		executor := &recordingGitExecutor{}
		testRepository := newTestRepository(testInstance, testInstance.TempDir(), executor)

		require.NoError(testInstance, testRepository.Init(context.Background(), repository.InitOptions{}))
		require.Equal(testInstance, []string{"init", "-q"}, executor.recordedCommands[0].Arguments)
	})

	testInstance.Run("rejects_non_empty_directory", func(testInstance *testing.T) {
		targetPath := testInstance.TempDir()
		require.NoError(testInstance, os.WriteFile(filepath.Join(targetPath, "existing.txt"), []byte("data"), 0o600))
		executor := &recordingGitExecutor{}
		testRepository := newTestRepository(testInstance, targetPath, executor)

		requireKind(testInstance, testRepository.Init(context.Background(), repository.InitOptions{}), repository.KindAlreadyExists)
		require.Empty(testInstance, executor.recordedCommands)
	})

	testInstance.Run("rejects_regular_file", func(testInstance *testing.T) {
		targetPath := filepath.Join(testInstance.TempDir(), "file.txt")
		require.NoError(testInstance, os.WriteFile(targetPath, []byte("data"), 0o600))
		executor := &recordingGitExecutor{}
		testRepository := newTestRepository(testInstance, targetPath, executor)

		requireKind(testInstance, testRepository.Init(context.Background(), repository.InitOptions{}), repository.KindAlreadyExists)
		require.Empty(testInstance, executor.recordedCommands)
	})
}

func TestCloneRunsFromFilesystemRoot(testInstance *testing.T) {
	targetPath := filepath.Join(testInstance.TempDir(), "parent", "clone")
	executor := &recordingGitExecutor{}
	testRepository := newTestRepository(testInstance, targetPath, executor)

	require.NoError(testInstance, testRepository.Clone(context.Background(), "https://example.com/team/app.git"))
	require.Len(testInstance, executor.recordedCommands, 1)
	require.Equal(testInstance, []string{"clone", "-q", "--", "https://example.com/team/app.git", targetPath}, executor.recordedCommands[0].Arguments)
	require.Equal(testInstance, string(filepath.Separator), executor.recordedCommands[0].WorkingDirectory)
	require.DirExists(testInstance, filepath.Dir(targetPath))
}

func TestCommitClassifiesFailures(testInstance *testing.T) {
	testCases := []struct {
		name            string
		failure         error
		expectedKind    repository.ErrorKind
		expectedMessage string
	}{
		{
			name: "nothing_to_commit_on_stdout",
			failure: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: execshell.CommandGit},
				Result:  execshell.ExecutionResult{StandardOutput: "On branch main\nnothing to commit, working tree clean\n", ExitCode: 1},
			},
			expectedKind:    repository.KindInvalidState,
			expectedMessage: "nothing to commit",
		},
		{
			name: "no_changes_added",
			failure: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: execshell.CommandGit},
				Result:  execshell.ExecutionResult{StandardOutput: "no changes added to commit (use \"git add\")\n", ExitCode: 1},
			},
			expectedKind:    repository.KindInvalidState,
			expectedMessage: "nothing to commit",
		},
		{
			name: "other_failure",
			failure: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: execshell.CommandGit},
				Result:  execshell.ExecutionResult{StandardError: "fatal: unable to auto-detect email address\n", ExitCode: 128},
			},
			expectedKind:    repository.KindCommand,
			expectedMessage: "fatal: unable to auto-detect email address",
		},
		{
			name:            "execution_failure",
			failure:         execshell.CommandExecutionError{Command: execshell.ShellCommand{Name: execshell.CommandGit}, Cause: context.Canceled},
			expectedKind:    repository.KindCommand,
			expectedMessage: "git could not be executed: context canceled",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingGitExecutor{executionError: testCase.failure}
			testRepository := newTestRepository(testInstance, testInstance.TempDir(), executor)

			commitError := testRepository.Commit(context.Background(), repository.CommitOptions{Message: "Update"})
			requireKind(testInstance, commitError, testCase.expectedKind)

			var repositoryError *repository.Error
			require.True(testInstance, errors.As(commitError, &repositoryError))
			require.Equal(testInstance, testCase.expectedMessage, repositoryError.Message)

			var commandFailure execshell.CommandFailedError
			var executionFailure execshell.CommandExecutionError
			require.True(testInstance, errors.As(commitError, &commandFailure) || errors.As(commitError, &executionFailure))
		})
	}
}

func TestStatusParsesExecutorOutput(testInstance *testing.T) {
	executor := &recordingGitExecutor{
		executionResult: execshell.ExecutionResult{StandardOutput: "A  newfile.txt\x00R  moved.txt\x00original.txt\x00"},
	}
	testRepository := newTestRepository(testInstance, testInstance.TempDir(), executor)

	report, statusError := testRepository.Status(context.Background())
	require.NoError(testInstance, statusError)
	require.Equal(testInstance, gitstatus.Report{
		"newfile.txt": {IndexStatus: gitstatus.StatusAdded, WorkTreeStatus: gitstatus.StatusUnmodified},
		"moved.txt":   {IndexStatus: gitstatus.StatusRenamed, WorkTreeStatus: gitstatus.StatusUnmodified, RenamedOrCopiedFrom: "original.txt"},
	}, report)
	require.Equal(testInstance, []string{"status", "--porcelain", "-z", "--untracked-files=all", "--ignored"}, executor.recordedCommands[0].Arguments)
}

func TestStatusReportsParseAndCommandFailures(testInstance *testing.T) {
	malformedExecutor := &recordingGitExecutor{executionResult: execshell.ExecutionResult{StandardOutput: " M truncated"}}
	malformedRepository := newTestRepository(testInstance, testInstance.TempDir(), malformedExecutor)

	_, parseError := malformedRepository.Status(context.Background())
	requireKind(testInstance, parseError, repository.KindParse)
	var statusParseError *gitstatus.ParseError
	require.ErrorAs(testInstance, parseError, &statusParseError)

	failingExecutor := &recordingGitExecutor{executionError: execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit},
		Result:  execshell.ExecutionResult{StandardError: "fatal: not a git repository", ExitCode: 128},
	}}
	failingRepository := newTestRepository(testInstance, testInstance.TempDir(), failingExecutor)

	_, commandError := failingRepository.Status(context.Background())
	requireKind(testInstance, commandError, repository.KindCommand)
	require.Contains(testInstance, commandError.Error(), "fatal: not a git repository")
}
