package execshell

import "context"

// CommandName identifies an executable invoked through the executor.
type CommandName string

// CommandGit invokes the git binary found on PATH.
const CommandGit CommandName = "git"

// CommandDetails describes how a command should be invoked.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
	// DiscardOutput connects the child's output streams to the null device instead of capturing them.
	DiscardOutput bool
}

// ShellCommand pairs an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of a finished process.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner starts a process and waits for it to exit.
// A non-zero exit code is reported through ExecutionResult, not as an error.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}
