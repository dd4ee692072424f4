package cli

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/gitasync/internal/ui"
	pathutils "github.com/temirov/gitasync/internal/utils/path"
	"github.com/temirov/gitasync/internal/watch"
	"github.com/temirov/gitasync/pkg/gitstatus"
	"github.com/temirov/gitasync/pkg/repository"
)

const (
	testConfigurationFileNameConstant       = "config.yaml"
	testConfigurationContentConstant        = "common:\n  log_level: debug\n  log_format: structured\nexecutor:\n  max_output_bytes: 4096\n  timeout: 45s\nstatus:\n  format: yaml\n  watch_debounce: 1s\n"
	testNegativeTimeoutConfigurationContent = "executor:\n  timeout: -5s\n"
	testEnvironmentTimeoutNameConstant      = "GITASYNC_EXECUTOR_TIMEOUT"
	testEnvironmentLogLevelNameConstant     = "GITASYNC_COMMON_LOG_LEVEL"
	testTrackedFileNameConstant             = "README.md"
	testTrackedFileContentConstant          = "hello\n"
	testCommitMessageConstant               = "initial commit"
	testQuietLogLevelConstant               = "error"
)

func isolateConfiguration(testInstance *testing.T) string {
	testInstance.Helper()
	configurationDirectory := testInstance.TempDir()
	testInstance.Setenv(configurationSearchPathEnvironmentNameConstant, configurationDirectory)
	testInstance.Setenv("XDG_CONFIG_HOME", testInstance.TempDir())
	changeWorkingDirectory(testInstance, testInstance.TempDir())
	return configurationDirectory
}

// changeWorkingDirectory mirrors testing.T.Chdir for toolchains that predate it.
func changeWorkingDirectory(testInstance *testing.T, directory string) {
	testInstance.Helper()
	previousDirectory, getwdError := os.Getwd()
	require.NoError(testInstance, getwdError)
	absoluteDirectory, absError := filepath.Abs(directory)
	require.NoError(testInstance, absError)
	require.NoError(testInstance, os.Chdir(directory))
	testInstance.Setenv("PWD", absoluteDirectory)
	testInstance.Cleanup(func() {
		if restoreError := os.Chdir(previousDirectory); restoreError != nil {
			testInstance.Fatalf("restore working directory: %v", restoreError)
		}
	})
}

func writeTestFile(testInstance *testing.T, path string, content string) {
	testInstance.Helper()
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(testInstance, os.WriteFile(path, []byte(content), 0o644))
}

func initializeApplication(testInstance *testing.T, arguments ...string) (*Application, error) {
	testInstance.Helper()
	application := NewApplication()
	require.NoError(testInstance, application.rootCommand.PersistentFlags().Parse(arguments))
	initializationError := application.initializeConfiguration(application.rootCommand)
	testInstance.Cleanup(func() {
		_ = application.flushLogger()
	})
	return application, initializationError
}

func runApplication(testInstance *testing.T, arguments ...string) (string, error) {
	testInstance.Helper()
	application := NewApplication()
	outputBuffer := &bytes.Buffer{}
	application.rootCommand.SetOut(outputBuffer)
	application.rootCommand.SetErr(&bytes.Buffer{})
	application.rootCommand.SetArgs(append([]string{"--" + logLevelFlagNameConstant, testQuietLogLevelConstant}, arguments...))
	executionError := application.rootCommand.ExecuteContext(context.Background())
	_ = application.flushLogger()
	return outputBuffer.String(), executionError
}

func TestApplicationConfigurationPrecedence(testInstance *testing.T) {
	testCases := []struct {
		name                  string
		configurationContent  string
		environment           map[string]string
		arguments             []string
		expectedConfiguration ApplicationConfiguration
	}{
		{
			name: "EmbeddedDefaults",
			expectedConfiguration: ApplicationConfiguration{
				Common:   ApplicationCommonConfiguration{LogLevel: "info", LogFormat: "console"},
				Executor: ApplicationExecutorConfiguration{},
				Status:   ApplicationStatusConfiguration{Format: string(ui.StatusFormatAuto), WatchDebounce: watch.DefaultDebounceDelay},
			},
		},
		{
			name:                 "ConfigurationFileOverridesDefaults",
			configurationContent: testConfigurationContentConstant,
			expectedConfiguration: ApplicationConfiguration{
				Common:   ApplicationCommonConfiguration{LogLevel: "debug", LogFormat: "structured"},
				Executor: ApplicationExecutorConfiguration{MaxOutputBytes: 4096, Timeout: 45 * time.Second},
				Status:   ApplicationStatusConfiguration{Format: string(ui.StatusFormatYAML), WatchDebounce: time.Second},
			},
		},
		{
			name:                 "EnvironmentOverridesConfigurationFile",
			configurationContent: testConfigurationContentConstant,
			environment: map[string]string{
				testEnvironmentTimeoutNameConstant:  "2m",
				testEnvironmentLogLevelNameConstant: "warn",
			},
			expectedConfiguration: ApplicationConfiguration{
				Common:   ApplicationCommonConfiguration{LogLevel: "warn", LogFormat: "structured"},
				Executor: ApplicationExecutorConfiguration{MaxOutputBytes: 4096, Timeout: 2 * time.Minute},
				Status:   ApplicationStatusConfiguration{Format: string(ui.StatusFormatYAML), WatchDebounce: time.Second},
			},
		},
		{
			name:                 "FlagsOverrideEnvironment",
			configurationContent: testConfigurationContentConstant,
			environment: map[string]string{
				testEnvironmentTimeoutNameConstant: "2m",
			},
			arguments: []string{"--timeout", "5s", "--log-level", "error", "--log-format", "console"},
			expectedConfiguration: ApplicationConfiguration{
				Common:   ApplicationCommonConfiguration{LogLevel: "error", LogFormat: "console"},
				Executor: ApplicationExecutorConfiguration{MaxOutputBytes: 4096, Timeout: 5 * time.Second},
				Status:   ApplicationStatusConfiguration{Format: string(ui.StatusFormatYAML), WatchDebounce: time.Second},
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			configurationDirectory := isolateConfiguration(testInstance)
			if len(testCase.configurationContent) > 0 {
				writeTestFile(testInstance, filepath.Join(configurationDirectory, testConfigurationFileNameConstant), testCase.configurationContent)
			}
			for environmentName, environmentValue := range testCase.environment {
				testInstance.Setenv(environmentName, environmentValue)
			}

			application, initializationError := initializeApplication(testInstance, testCase.arguments...)
			require.NoError(testInstance, initializationError)
			require.Equal(testInstance, testCase.expectedConfiguration, application.configuration)
			require.NotNil(testInstance, application.gitExecutor)

			timeout, hasTimeout := operationDeadline(application)
			if testCase.expectedConfiguration.Executor.Timeout > 0 {
				require.True(testInstance, hasTimeout)
				require.LessOrEqual(testInstance, timeout, testCase.expectedConfiguration.Executor.Timeout)
			} else {
				require.False(testInstance, hasTimeout)
			}
		})
	}
}

func operationDeadline(application *Application) (time.Duration, bool) {
	operationContext, cancelOperation := application.commandContextAccessor.OperationContext(application.rootCommand.Context())
	defer cancelOperation()
	deadline, hasDeadline := operationContext.Deadline()
	if !hasDeadline {
		return 0, false
	}
	return time.Until(deadline), true
}

func TestApplicationRejectsInvalidConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		configurationContent string
		arguments            []string
	}{
		{
			name:                 "NegativeTimeoutInConfiguration",
			configurationContent: testNegativeTimeoutConfigurationContent,
		},
		{
			name:      "NegativeTimeoutFlag",
			arguments: []string{"--timeout", "-1s"},
		},
		{
			name:      "UnsupportedLogLevel",
			arguments: []string{"--log-level", "verbose"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			configurationDirectory := isolateConfiguration(testInstance)
			if len(testCase.configurationContent) > 0 {
				writeTestFile(testInstance, filepath.Join(configurationDirectory, testConfigurationFileNameConstant), testCase.configurationContent)
			}

			_, initializationError := initializeApplication(testInstance, testCase.arguments...)
			require.Error(testInstance, initializationError)
		})
	}
}

func TestCloneDestination(testInstance *testing.T) {
	testCases := []struct {
		name                string
		source              string
		arguments           []string
		expectedDestination string
		expectError         bool
	}{
		{
			name:                "ExplicitDestination",
			source:              "https://github.com/example/project.git",
			arguments:           []string{"https://github.com/example/project.git", "target"},
			expectedDestination: "target",
		},
		{
			name:                "DerivedFromURL",
			source:              "https://github.com/example/project.git",
			arguments:           []string{"https://github.com/example/project.git"},
			expectedDestination: "project",
		},
		{
			name:                "DerivedFromLocalBareRepository",
			source:              "/srv/git/origin.git",
			arguments:           []string{"/srv/git/origin.git"},
			expectedDestination: "origin",
		},
		{
			name:        "UnderivableSource",
			source:      "/",
			arguments:   []string{"/"},
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			destination, destinationError := cloneDestination(testCase.source, testCase.arguments)
			if testCase.expectError {
				require.Error(testInstance, destinationError)
				return
			}
			require.NoError(testInstance, destinationError)
			require.Equal(testInstance, testCase.expectedDestination, destination)
		})
	}
}

func requireGit(testInstance *testing.T) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git not available in PATH")
	}
}

func isolateGit(testInstance *testing.T) {
	testInstance.Helper()
	environment := map[string]string{
		"GIT_CONFIG_GLOBAL":   os.DevNull,
		"GIT_CONFIG_NOSYSTEM": "1",
		"GIT_CONFIG_COUNT":    "1",
		"GIT_CONFIG_KEY_0":    "init.defaultBranch",
		"GIT_CONFIG_VALUE_0":  "main",
		"GIT_AUTHOR_NAME":     "Command Tester",
		"GIT_AUTHOR_EMAIL":    "tester@example.com",
		"GIT_COMMITTER_NAME":  "Command Tester",
		"GIT_COMMITTER_EMAIL": "tester@example.com",
	}
	for environmentName, environmentValue := range environment {
		testInstance.Setenv(environmentName, environmentValue)
	}
}

func TestRepositoryCommandsAgainstGit(testInstance *testing.T) {
	requireGit(testInstance)
	isolateConfiguration(testInstance)
	isolateGit(testInstance)

	workspace := testInstance.TempDir()
	originPath := filepath.Join(workspace, "origin.git")
	workingPath := filepath.Join(workspace, "working")
	clonePath := filepath.Join(workspace, "clone")

	_, initError := runApplication(testInstance, "init", "--bare", originPath)
	require.NoError(testInstance, initError)
	_, initError = runApplication(testInstance, "init", workingPath)
	require.NoError(testInstance, initError)

	cleanOutput, statusError := runApplication(testInstance, "status", "--format", "porcelain", workingPath)
	require.NoError(testInstance, statusError)
	require.Empty(testInstance, cleanOutput)

	writeTestFile(testInstance, filepath.Join(workingPath, testTrackedFileNameConstant), testTrackedFileContentConstant)

	porcelainOutput, statusError := runApplication(testInstance, "status", "--format", "porcelain", workingPath)
	require.NoError(testInstance, statusError)
	report, parseError := gitstatus.Parse([]byte(porcelainOutput))
	require.NoError(testInstance, parseError)
	require.True(testInstance, report[testTrackedFileNameConstant].IsUntracked())

	_, addError := runApplication(testInstance, "-C", workingPath, "add", "--all")
	require.NoError(testInstance, addError)
	_, commitError := runApplication(testInstance, "-C", workingPath, "commit", "-m", testCommitMessageConstant)
	require.NoError(testInstance, commitError)

	_, emptyCommitError := runApplication(testInstance, "-C", workingPath, "commit", "-m", testCommitMessageConstant)
	require.Error(testInstance, emptyCommitError)

	_, pushError := runApplication(testInstance, "-C", workingPath, "push", "--remote", originPath, "--branch", "main")
	require.NoError(testInstance, pushError)

	_, cloneError := runApplication(testInstance, "clone", originPath, clonePath)
	require.NoError(testInstance, cloneError)
	require.FileExists(testInstance, filepath.Join(clonePath, testTrackedFileNameConstant))

	yamlOutput, statusError := runApplication(testInstance, "status", "--format", "yaml", workingPath, clonePath)
	require.NoError(testInstance, statusError)
	var statuses []ui.RepositoryStatus
	require.NoError(testInstance, yaml.Unmarshal([]byte(yamlOutput), &statuses))
	require.Len(testInstance, statuses, 2)
	for _, repositoryStatus := range statuses {
		require.True(testInstance, repositoryStatus.Clean)
	}

	_, porcelainError := runApplication(testInstance, "status", "--format", "porcelain", workingPath, clonePath)
	require.ErrorIs(testInstance, porcelainError, ui.ErrPorcelainRequiresSingleRepository)
}

func TestRepositoryCommandsValidateArguments(testInstance *testing.T) {
	requireGit(testInstance)
	isolateConfiguration(testInstance)
	isolateGit(testInstance)

	workingPath := filepath.Join(testInstance.TempDir(), "working")
	_, initError := runApplication(testInstance, "init", workingPath)
	require.NoError(testInstance, initError)

	testCases := []struct {
		name      string
		arguments []string
	}{
		{name: "CommitWithoutMessage", arguments: []string{"-C", workingPath, "commit"}},
		{name: "AddWithoutPatterns", arguments: []string{"-C", workingPath, "add"}},
		{name: "PushWithoutBranchSelection", arguments: []string{"-C", workingPath, "push"}},
		{name: "InitIntoNonEmptyDirectory", arguments: []string{"init", workingPath}},
		{name: "UnsupportedStatusFormat", arguments: []string{"status", "--format", "xml", workingPath}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, executionError := runApplication(testInstance, testCase.arguments...)
			require.Error(testInstance, executionError)
		})
	}
}

func TestRepositoryCommandsResolveRelativeLocalPaths(testInstance *testing.T) {
	requireGit(testInstance)
	isolateConfiguration(testInstance)
	isolateGit(testInstance)

	workspace := testInstance.TempDir()
	changeWorkingDirectory(testInstance, workspace)

	_, initError := runApplication(testInstance, "init", "--bare", "origin.git")
	require.NoError(testInstance, initError)
	_, initError = runApplication(testInstance, "init", "working")
	require.NoError(testInstance, initError)

	writeTestFile(testInstance, filepath.Join(workspace, "working", testTrackedFileNameConstant), testTrackedFileContentConstant)
	_, addError := runApplication(testInstance, "-C", "working", "add", "--all")
	require.NoError(testInstance, addError)
	_, commitError := runApplication(testInstance, "-C", "working", "commit", "-m", testCommitMessageConstant)
	require.NoError(testInstance, commitError)

	_, pushError := runApplication(testInstance, "-C", "working", "push", "--remote", "./origin.git", "--branch", "main")
	require.NoError(testInstance, pushError)

	_, cloneError := runApplication(testInstance, "clone", "./origin.git", "copy")
	require.NoError(testInstance, cloneError)
	require.FileExists(testInstance, filepath.Join(workspace, "copy", testTrackedFileNameConstant))

	_, derivedCloneError := runApplication(testInstance, "clone", "./origin.git")
	require.NoError(testInstance, derivedCloneError)
	require.FileExists(testInstance, filepath.Join(workspace, "origin", testTrackedFileNameConstant))
}

func TestResolveRemote(testInstance *testing.T) {
	workspace := testInstance.TempDir()
	changeWorkingDirectory(testInstance, workspace)
	require.NoError(testInstance, os.Mkdir(filepath.Join(workspace, "other.git"), 0o755))
	require.NoError(testInstance, os.Mkdir(filepath.Join(workspace, "origin"), 0o755))

	builder := &RepositoryCommandBuilder{PathResolver: pathutils.NewRepositoryPathResolver()}
	absoluteWorkspace, absoluteError := filepath.Abs(workspace)
	require.NoError(testInstance, absoluteError)

	testCases := []struct {
		name           string
		remote         string
		expectedRemote string
	}{
		{name: "RemoteNameUntouched", remote: "origin", expectedRemote: "origin"},
		{name: "RelativePathAnchored", remote: "./other.git", expectedRemote: filepath.Join(absoluteWorkspace, "other.git")},
		{name: "MissingRelativePathUntouched", remote: "./missing.git", expectedRemote: "./missing.git"},
		{name: "HTTPSURLUntouched", remote: "https://github.com/example/project.git", expectedRemote: "https://github.com/example/project.git"},
		{name: "SCPURLUntouched", remote: "git@github.com:example/project.git", expectedRemote: "git@github.com:example/project.git"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedRemote, builder.resolveRemote(testCase.remote))
		})
	}
}

func TestStatusFailureNamesRepositoryOnce(testInstance *testing.T) {
	requireGit(testInstance)
	isolateConfiguration(testInstance)
	isolateGit(testInstance)

	plainDirectory := filepath.Join(testInstance.TempDir(), "plain")
	require.NoError(testInstance, os.Mkdir(plainDirectory, 0o755))
	testInstance.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(plainDirectory))

	_, statusError := runApplication(testInstance, "status", "--format", "porcelain", plainDirectory)
	require.ErrorIs(testInstance, statusError, repository.ErrCommand)
	require.NotContains(testInstance, statusError.Error(), plainDirectory+": status")
}
