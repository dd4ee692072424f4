package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitasync/internal/gitrepo"
	"github.com/temirov/gitasync/internal/utils"
	pathutils "github.com/temirov/gitasync/internal/utils/path"
	"github.com/temirov/gitasync/pkg/repository"
)

const (
	initCommandUseConstant                = "init [path]"
	initCommandShortConstant              = "Create an empty repository"
	initCommandLongConstant               = "init creates a repository at path (default: current directory). The directory is created when missing and must be empty when present."
	cloneCommandUseConstant               = "clone <source> [destination]"
	cloneCommandShortConstant             = "Clone a repository into a new directory"
	cloneCommandLongConstant              = "clone copies source into destination. Without a destination the directory name is derived from the source, as git does. The destination must not exist."
	addCommandUseConstant                 = "add [pattern...]"
	addCommandShortConstant               = "Stage changes"
	addCommandLongConstant                = "add stages either every change (--all) or the paths matching the given patterns."
	commitCommandUseConstant              = "commit"
	commitCommandShortConstant            = "Record staged changes"
	commitCommandLongConstant             = "commit records the index with the given message. A commit with nothing staged fails unless --allow-empty is set."
	pushCommandUseConstant                = "push"
	pushCommandShortConstant              = "Publish commits to a remote"
	pushCommandLongConstant               = "push sends either one branch (--branch) or every branch (--all) to the remote."
	bareFlagNameConstant                  = "bare"
	bareFlagUsageConstant                 = "Create a bare repository without a working tree."
	allFlagNameConstant                   = "all"
	addAllFlagUsageConstant               = "Stage every change in the working tree."
	messageFlagNameConstant               = "message"
	messageFlagShorthandConstant          = "m"
	messageFlagUsageConstant              = "Commit message."
	signFlagNameConstant                  = "sign"
	signFlagShorthandConstant             = "s"
	signFlagUsageConstant                 = "Add a Signed-off-by trailer."
	allowEmptyFlagNameConstant            = "allow-empty"
	allowEmptyFlagUsageConstant           = "Record a commit even when nothing is staged."
	remoteFlagNameConstant                = "remote"
	remoteFlagUsageConstant               = "Remote name, URL or path to push to."
	defaultRemoteNameConstant             = "origin"
	branchFlagNameConstant                = "branch"
	branchFlagUsageConstant               = "Branch to push."
	pushAllFlagUsageConstant              = "Push every local branch."
	pruneFlagNameConstant                 = "prune"
	pruneFlagUsageConstant                = "Remove remote branches that have no local counterpart."
	cloneDestinationErrorTemplateConstant = "unable to determine clone destination: %w"
	currentDirectoryPrefixConstant        = "."
	homeDirectoryPrefixConstant           = "~"
	initOperationNameConstant             = "init"
	cloneOperationNameConstant            = "clone"
	addOperationNameConstant              = "add"
	commitOperationNameConstant           = "commit"
	pushOperationNameConstant             = "push"
	operationCompletedMessageConstant     = "repository operation completed"
	logFieldOperationConstant             = "operation"
	logFieldRepositoryConstant            = "repository"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// RepositoryProvider opens a repository handle for a path.
type RepositoryProvider func(path string) (repository.Repository, error)

// RepositoryCommandBuilder assembles the git subcommands around shared providers.
type RepositoryCommandBuilder struct {
	LoggerProvider              LoggerProvider
	RepositoryProvider          RepositoryProvider
	RepositoryPathProvider      func() string
	StatusConfigurationProvider func() ApplicationStatusConfiguration
	ContextAccessor             utils.CommandContextAccessor
	PathResolver                *pathutils.RepositoryPathResolver
}

// Build constructs every repository subcommand.
func (builder *RepositoryCommandBuilder) Build() []*cobra.Command {
	return []*cobra.Command{
		builder.buildStatusCommand(),
		builder.buildInitCommand(),
		builder.buildCloneCommand(),
		builder.buildAddCommand(),
		builder.buildCommitCommand(),
		builder.buildPushCommand(),
	}
}

func (builder *RepositoryCommandBuilder) buildInitCommand() *cobra.Command {
	var options repository.InitOptions
	command := &cobra.Command{
		Use:   initCommandUseConstant,
		Short: initCommandShortConstant,
		Long:  initCommandLongConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			repositoryPath := defaultRepositoryPathConstant
			if len(arguments) == 1 {
				repositoryPath = arguments[0]
			}
			return builder.runOperation(command, repositoryPath, initOperationNameConstant, func(executionContext context.Context, handle repository.Repository) error {
				return handle.Init(executionContext, options)
			})
		},
	}
	command.Flags().BoolVar(&options.Bare, bareFlagNameConstant, false, bareFlagUsageConstant)
	return command
}

func (builder *RepositoryCommandBuilder) buildCloneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   cloneCommandUseConstant,
		Short: cloneCommandShortConstant,
		Long:  cloneCommandLongConstant,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(command *cobra.Command, arguments []string) error {
			source := builder.resolveLocalSource(arguments[0])
			destination, destinationError := cloneDestination(source, arguments)
			if destinationError != nil {
				return destinationError
			}
			return builder.runOperation(command, destination, cloneOperationNameConstant, func(executionContext context.Context, handle repository.Repository) error {
				return handle.Clone(executionContext, source)
			})
		},
	}
}

func cloneDestination(source string, arguments []string) (string, error) {
	if len(arguments) == 2 {
		return arguments[1], nil
	}
	directoryName, nameError := gitrepo.DefaultCloneDirectoryName(source)
	if nameError != nil {
		return "", fmt.Errorf(cloneDestinationErrorTemplateConstant, nameError)
	}
	return filepath.Join(defaultRepositoryPathConstant, directoryName), nil
}

// resolveLocalSource anchors a local clone source to the invoking directory, since git clones from
// the filesystem root. URLs and missing paths pass through unchanged.
func (builder *RepositoryCommandBuilder) resolveLocalSource(source string) string {
	expandedSource := builder.PathResolver.ExpandHome(source)
	if _, parseError := gitrepo.ParseRemoteURL(expandedSource); parseError == nil {
		return expandedSource
	}
	if _, statError := os.Stat(expandedSource); statError != nil {
		return expandedSource
	}
	absoluteSource, absoluteError := filepath.Abs(expandedSource)
	if absoluteError != nil {
		return expandedSource
	}
	return absoluteSource
}

// resolveRemote anchors a path-like remote to the invoking directory rather than the repository.
// Bare remote names such as origin are left for git to resolve.
func (builder *RepositoryCommandBuilder) resolveRemote(remote string) string {
	trimmedRemote := strings.TrimSpace(remote)
	if !looksLikeLocalPath(trimmedRemote) {
		return trimmedRemote
	}
	return builder.resolveLocalSource(trimmedRemote)
}

func looksLikeLocalPath(candidate string) bool {
	return filepath.IsAbs(candidate) ||
		strings.HasPrefix(candidate, currentDirectoryPrefixConstant) ||
		strings.HasPrefix(candidate, homeDirectoryPrefixConstant) ||
		strings.ContainsRune(candidate, filepath.Separator) ||
		strings.ContainsRune(candidate, '/')
}

func (builder *RepositoryCommandBuilder) buildAddCommand() *cobra.Command {
	var stageAll bool
	command := &cobra.Command{
		Use:   addCommandUseConstant,
		Short: addCommandShortConstant,
		Long:  addCommandLongConstant,
		RunE: func(command *cobra.Command, arguments []string) error {
			options := repository.AddOptions{All: stageAll, Patterns: arguments}
			return builder.runOperation(command, builder.RepositoryPathProvider(), addOperationNameConstant, func(executionContext context.Context, handle repository.Repository) error {
				return handle.Add(executionContext, options)
			})
		},
	}
	command.Flags().BoolVar(&stageAll, allFlagNameConstant, false, addAllFlagUsageConstant)
	return command
}

func (builder *RepositoryCommandBuilder) buildCommitCommand() *cobra.Command {
	var options repository.CommitOptions
	command := &cobra.Command{
		Use:   commitCommandUseConstant,
		Short: commitCommandShortConstant,
		Long:  commitCommandLongConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.runOperation(command, builder.RepositoryPathProvider(), commitOperationNameConstant, func(executionContext context.Context, handle repository.Repository) error {
				return handle.Commit(executionContext, options)
			})
		},
	}
	command.Flags().StringVarP(&options.Message, messageFlagNameConstant, messageFlagShorthandConstant, "", messageFlagUsageConstant)
	command.Flags().BoolVarP(&options.Sign, signFlagNameConstant, signFlagShorthandConstant, false, signFlagUsageConstant)
	command.Flags().BoolVar(&options.AllowEmpty, allowEmptyFlagNameConstant, false, allowEmptyFlagUsageConstant)
	return command
}

func (builder *RepositoryCommandBuilder) buildPushCommand() *cobra.Command {
	var (
		remoteName string
		options    repository.PushOptions
	)
	command := &cobra.Command{
		Use:   pushCommandUseConstant,
		Short: pushCommandShortConstant,
		Long:  pushCommandLongConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			options.Remote = repository.RemoteName(builder.resolveRemote(remoteName))
			return builder.runOperation(command, builder.RepositoryPathProvider(), pushOperationNameConstant, func(executionContext context.Context, handle repository.Repository) error {
				return handle.Push(executionContext, options)
			})
		},
	}
	command.Flags().StringVar(&remoteName, remoteFlagNameConstant, defaultRemoteNameConstant, remoteFlagUsageConstant)
	command.Flags().StringVar(&options.Branch, branchFlagNameConstant, "", branchFlagUsageConstant)
	command.Flags().BoolVar(&options.All, allFlagNameConstant, false, pushAllFlagUsageConstant)
	command.Flags().BoolVar(&options.Prune, pruneFlagNameConstant, false, pruneFlagUsageConstant)
	return command
}

// runOperation starts the operation in the background under the configured deadline and waits for it,
// returning early when the command context is cancelled.
func (builder *RepositoryCommandBuilder) runOperation(command *cobra.Command, repositoryPath string, operationName string, operation func(context.Context, repository.Repository) error) error {
	handle, openError := builder.RepositoryProvider(repositoryPath)
	if openError != nil {
		return openError
	}

	operationContext, cancelOperation := builder.ContextAccessor.OperationContext(command.Context())
	defer cancelOperation()

	pending := repository.StartAction(operationContext, func(executionContext context.Context) error {
		return operation(executionContext, handle)
	})
	if _, waitError := pending.Wait(command.Context()); waitError != nil {
		return waitError
	}

	builder.logger().Debug(operationCompletedMessageConstant,
		zap.String(logFieldOperationConstant, operationName),
		zap.String(logFieldRepositoryConstant, handle.Path()),
	)
	return nil
}

func (builder *RepositoryCommandBuilder) logger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	if logger := builder.LoggerProvider(); logger != nil {
		return logger
	}
	return zap.NewNop()
}
