// Package cli constructs the gitasync command-line interface. It wires the
// Cobra command hierarchy to the layered configuration loader, the zap logger
// factory and the shell-backed git executor, and exposes the repository
// facade operations as subcommands.
package cli
