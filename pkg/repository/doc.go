// Package repository drives a single git repository through the git command line.
//
// A Repository is an immutable handle around an absolute path. Each operation
// validates its preconditions, runs exactly one git process scoped to that path
// and reports failures as *Error values tagged with an ErrorKind. Operations
// honour context cancellation by terminating the child process; Start runs any
// operation on its own goroutine for callers that want to collect the outcome later.
package repository
