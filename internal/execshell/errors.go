package execshell

import (
	"errors"
	"fmt"
	"strings"
)

const (
	loggerNotConfiguredMessageConstant        = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant = "shell executor command runner not configured"
	commandExitCodeTemplateConstant           = "%s exited with code %d"
	commandExecutionFailureTemplateConstant   = "%s could not be executed: %v"
	outputLimitExceededTemplateConstant       = "%s exceeded the %d byte output limit"
)

var (
	// ErrLoggerNotConfigured indicates a nil logger was supplied to NewShellExecutor.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates a nil runner was supplied to NewShellExecutor.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandFailedError reports a command that ran to completion with a non-zero exit code.
// Its message is the command's diagnostic text: standard error, or standard output when standard error is empty.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error implements error.
func (failure CommandFailedError) Error() string {
	if message := failure.DiagnosticText(); len(message) > 0 {
		return message
	}
	return fmt.Sprintf(commandExitCodeTemplateConstant, failure.Command.Name, failure.Result.ExitCode)
}

// DiagnosticText returns the trimmed output the command produced to explain its failure.
func (failure CommandFailedError) DiagnosticText() string {
	if standardError := strings.TrimSpace(failure.Result.StandardError); len(standardError) > 0 {
		return standardError
	}
	return strings.TrimSpace(failure.Result.StandardOutput)
}

// CommandExecutionError reports a command that could not be started or waited on.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error implements error.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionFailureTemplateConstant, failure.Command.Name, failure.Cause)
}

// Unwrap exposes the underlying cause, such as context.Canceled or exec.ErrNotFound.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// OutputStream names a captured process stream.
type OutputStream string

// Captured streams.
const (
	OutputStreamStandardOutput OutputStream = "standard output"
	OutputStreamStandardError  OutputStream = "standard error"
)

// OutputLimitExceededError reports a captured stream that grew past the runner's configured limit.
type OutputLimitExceededError struct {
	Stream OutputStream
	Limit  int
}

// Error implements error.
func (limitError OutputLimitExceededError) Error() string {
	return fmt.Sprintf(outputLimitExceededTemplateConstant, limitError.Stream, limitError.Limit)
}
