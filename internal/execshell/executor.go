package execshell

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	commandStartedLogMessageConstant         = "shell command started"
	commandSucceededLogMessageConstant       = "shell command succeeded"
	commandFailedLogMessageConstant          = "shell command failed"
	commandExecutionFailedLogMessageConstant = "shell command could not run"
	operationIdentifierFieldNameConstant     = "operation_id"
	commandNameFieldNameConstant             = "command"
	commandArgumentsFieldNameConstant        = "arguments"
	workingDirectoryFieldNameConstant        = "working_directory"
	exitCodeFieldNameConstant                = "exit_code"
	standardErrorFieldNameConstant           = "stderr"
	summaryFieldNameConstant                 = "summary"
)

// TextSanitizer rewrites text before it leaves the executor in logs, events, or errors.
type TextSanitizer func(text string) string

// ShellExecutorOption customizes a ShellExecutor.
type ShellExecutorOption func(*ShellExecutor)

// WithCommandEventObserver registers an observer notified about every command lifecycle event.
func WithCommandEventObserver(observer CommandEventObserver) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		if observer != nil {
			executor.observer = observer
		}
	}
}

// WithTextSanitizer registers a sanitizer applied to arguments and captured output before they are reported.
func WithTextSanitizer(sanitizer TextSanitizer) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		if sanitizer != nil {
			executor.sanitizer = sanitizer
		}
	}
}

// ShellExecutor runs commands through a CommandRunner and translates their outcome into typed errors.
type ShellExecutor struct {
	logger    *zap.Logger
	runner    CommandRunner
	observer  CommandEventObserver
	sanitizer TextSanitizer
	formatter CommandMessageFormatter
}

// NewShellExecutor constructs a ShellExecutor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, options ...ShellExecutorOption) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	executor := &ShellExecutor{
		logger:    logger,
		runner:    runner,
		observer:  silentCommandEventObserver{},
		sanitizer: func(text string) string { return text },
	}
	for _, option := range options {
		option(executor)
	}
	return executor, nil
}

// ExecuteGit runs git with the supplied details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// Execute runs the command once. A non-zero exit yields CommandFailedError; a failure to run yields CommandExecutionError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	operationIdentifier := uuid.NewString()
	reportedCommand := executor.sanitizeCommand(command)
	commandFields := executor.commandFields(operationIdentifier, reportedCommand)

	executor.logger.Debug(commandStartedLogMessageConstant, append(commandFields, zap.String(summaryFieldNameConstant, executor.formatter.BuildStartedMessage(reportedCommand)))...)
	executor.observer.CommandStarted(reportedCommand)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Debug(commandExecutionFailedLogMessageConstant, append(commandFields,
			zap.Error(runError),
			zap.String(summaryFieldNameConstant, executor.formatter.BuildExecutionFailureMessage(reportedCommand, runError)),
		)...)
		executor.observer.CommandExecutionFailed(reportedCommand, runError)
		return ExecutionResult{}, CommandExecutionError{Command: reportedCommand, Cause: runError}
	}

	reportedResult := executor.sanitizeResult(executionResult)
	executor.observer.CommandCompleted(reportedCommand, reportedResult)

	if executionResult.ExitCode != 0 {
		executor.logger.Debug(commandFailedLogMessageConstant, append(commandFields,
			zap.Int(exitCodeFieldNameConstant, reportedResult.ExitCode),
			zap.String(standardErrorFieldNameConstant, strings.TrimSpace(reportedResult.StandardError)),
			zap.String(summaryFieldNameConstant, executor.formatter.BuildFailureMessage(reportedCommand, reportedResult)),
		)...)
		return ExecutionResult{}, CommandFailedError{Command: reportedCommand, Result: reportedResult}
	}

	executor.logger.Debug(commandSucceededLogMessageConstant, append(commandFields, zap.String(summaryFieldNameConstant, executor.formatter.BuildSuccessMessage(reportedCommand)))...)
	return executionResult, nil
}

func (executor *ShellExecutor) commandFields(operationIdentifier string, command ShellCommand) []zap.Field {
	return []zap.Field{
		zap.String(operationIdentifierFieldNameConstant, operationIdentifier),
		zap.String(commandNameFieldNameConstant, string(command.Name)),
		zap.Strings(commandArgumentsFieldNameConstant, command.Details.Arguments),
		zap.String(workingDirectoryFieldNameConstant, command.Details.WorkingDirectory),
	}
}

func (executor *ShellExecutor) sanitizeCommand(command ShellCommand) ShellCommand {
	sanitizedArguments := make([]string, 0, len(command.Details.Arguments))
	for _, argument := range command.Details.Arguments {
		sanitizedArguments = append(sanitizedArguments, executor.sanitizer(argument))
	}
	sanitizedCommand := command
	sanitizedCommand.Details.Arguments = sanitizedArguments
	sanitizedCommand.Details.StandardInput = nil
	return sanitizedCommand
}

func (executor *ShellExecutor) sanitizeResult(result ExecutionResult) ExecutionResult {
	return ExecutionResult{
		StandardOutput: executor.sanitizer(result.StandardOutput),
		StandardError:  executor.sanitizer(result.StandardError),
		ExitCode:       result.ExitCode,
	}
}
