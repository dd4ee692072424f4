// Package gitstatus decodes the NUL-delimited porcelain output produced by
// `git status --porcelain -z` into a Report keyed by destination path.
//
// Parse handles an in-memory buffer, while Decoder consumes an io.Reader one
// record at a time so arbitrarily large status output never has to be held
// or truncated by the caller.
package gitstatus
