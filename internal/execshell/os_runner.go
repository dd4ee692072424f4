package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

const (
	environmentAssignmentSeparatorConstant = "="
	environmentAssignmentTemplateConstant  = "%s%s%s"
	contextTerminationTemplateConstant     = "command terminated: %w"
)

// OSCommandRunner executes commands using the operating system facilities.
type OSCommandRunner struct {
	// MaximumOutputBytes bounds each captured stream. Zero disables the bound.
	MaximumOutputBytes int
}

// NewOSCommandRunner constructs a runner backed by os/exec with unbounded capture.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// NewBoundedOSCommandRunner constructs a runner that rejects output larger than maximumOutputBytes per stream.
func NewBoundedOSCommandRunner(maximumOutputBytes int) *OSCommandRunner {
	return &OSCommandRunner{MaximumOutputBytes: maximumOutputBytes}
}

// Run executes the supplied command using os/exec. Cancelling the context kills the child process.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	commandArguments := append([]string{}, command.Details.Arguments...)
	executable := exec.CommandContext(executionContext, string(command.Name), commandArguments...)

	if len(command.Details.WorkingDirectory) > 0 {
		executable.Dir = command.Details.WorkingDirectory
	}

	if len(command.Details.EnvironmentVariables) > 0 {
		mergedEnvironment := append([]string{}, os.Environ()...)
		for environmentKey, environmentValue := range command.Details.EnvironmentVariables {
			mergedEnvironment = append(mergedEnvironment, fmt.Sprintf(environmentAssignmentTemplateConstant, environmentKey, environmentAssignmentSeparatorConstant, environmentValue))
		}
		executable.Env = mergedEnvironment
	}

	standardOutputBuffer := &boundedBuffer{limit: runner.MaximumOutputBytes}
	standardErrorBuffer := &boundedBuffer{limit: runner.MaximumOutputBytes}
	if !command.Details.DiscardOutput {
		executable.Stdout = standardOutputBuffer
		executable.Stderr = standardErrorBuffer
	}

	if len(command.Details.StandardInput) > 0 {
		executable.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	runError := executable.Run()
	if contextError := executionContext.Err(); contextError != nil && runError != nil {
		return ExecutionResult{}, fmt.Errorf(contextTerminationTemplateConstant, contextError)
	}
	if standardOutputBuffer.exceeded {
		return ExecutionResult{}, OutputLimitExceededError{Stream: OutputStreamStandardOutput, Limit: runner.MaximumOutputBytes}
	}
	if standardErrorBuffer.exceeded {
		return ExecutionResult{}, OutputLimitExceededError{Stream: OutputStreamStandardError, Limit: runner.MaximumOutputBytes}
	}

	if runError != nil {
		exitError := &exec.ExitError{}
		if errors.As(runError, &exitError) {
			return ExecutionResult{
				StandardOutput: standardOutputBuffer.String(),
				StandardError:  standardErrorBuffer.String(),
				ExitCode:       exitError.ExitCode(),
			}, nil
		}
		return ExecutionResult{}, runError
	}

	return ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
		ExitCode:       0,
	}, nil
}

// boundedBuffer keeps at most limit bytes and drains the remainder so the child never blocks on a full pipe.
type boundedBuffer struct {
	buffer   bytes.Buffer
	limit    int
	exceeded bool
}

func (buffer *boundedBuffer) Write(data []byte) (int, error) {
	if buffer.limit <= 0 {
		return buffer.buffer.Write(data)
	}
	remainingCapacity := buffer.limit - buffer.buffer.Len()
	if len(data) > remainingCapacity {
		buffer.exceeded = true
		if remainingCapacity > 0 {
			buffer.buffer.Write(data[:remainingCapacity])
		}
		return len(data), nil
	}
	return buffer.buffer.Write(data)
}

func (buffer *boundedBuffer) String() string {
	return buffer.buffer.String()
}
