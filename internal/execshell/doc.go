// Package execshell runs external commands and reports their outcome as typed errors.
//
// OSCommandRunner spawns processes through os/exec with optional bounded
// capture, and ShellExecutor layers logging, lifecycle events and failure
// classification on top of any CommandRunner.
package execshell
