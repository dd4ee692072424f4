package execshell

// CommandEventObserver follows each git invocation a ShellExecutor runs. Arguments and captured
// output are masked by the executor's sanitizer before they reach the observer.
type CommandEventObserver interface {
	// CommandStarted fires before the process is spawned.
	CommandStarted(command ShellCommand)
	// CommandCompleted fires once the process exited, whatever its exit code.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed fires when the process could not be started, waited on or captured.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// silentCommandEventObserver is installed when no observer is configured.
type silentCommandEventObserver struct{}

func (silentCommandEventObserver) CommandStarted(ShellCommand) {}

func (silentCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (silentCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}
