package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/gitasync/internal/ui"
	flagutils "github.com/temirov/gitasync/internal/utils/flags"
	"github.com/temirov/gitasync/internal/watch"
	"github.com/temirov/gitasync/pkg/repository"
)

const (
	statusCommandUseConstant             = "status [path...]"
	statusCommandShortConstant           = "Report working tree status for one or more repositories"
	statusCommandLongConstant            = "status parses git's machine-readable status for every path (default: current directory) concurrently and renders the combined report."
	statusFormatFlagNameConstant         = "format"
	statusFormatFlagUsageConstant        = "Output format; auto selects table on a terminal and porcelain otherwise."
	statusWatchFlagNameConstant          = "watch"
	statusWatchFlagUsageConstant         = "Re-render whenever a repository changes until interrupted."
	watcherCreationErrorTemplateConstant = "unable to watch %s: %w"
	statusRefreshMessageConstant         = "refreshing repository status"
	logFieldRepositoryCountConstant      = "repository_count"
)

func (builder *RepositoryCommandBuilder) buildStatusCommand() *cobra.Command {
	var watchEnabled bool
	command := &cobra.Command{
		Use:   statusCommandUseConstant,
		Short: statusCommandShortConstant,
		Long:  statusCommandLongConstant,
	}
	formatValue := flagutils.AddChoiceFlag(command.Flags(), statusFormatFlagNameConstant, string(ui.StatusFormatAuto), ui.StatusFormats(), statusFormatFlagUsageConstant)
	command.Flags().BoolVar(&watchEnabled, statusWatchFlagNameConstant, false, statusWatchFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		statusConfiguration := builder.statusConfiguration()
		requestedFormat := ui.StatusFormat(statusConfiguration.Format)
		if command.Flags().Changed(statusFormatFlagNameConstant) {
			requestedFormat = ui.StatusFormat(formatValue.String())
		}

		outputWriter := command.OutOrStdout()
		resolvedFormat, formatError := ui.ResolveStatusFormat(requestedFormat, ui.IsInteractiveWriter(outputWriter))
		if formatError != nil {
			return formatError
		}

		repositories, openError := builder.openRepositories(arguments)
		if openError != nil {
			return openError
		}

		renderer := ui.NewStatusRenderer(outputWriter)
		refresher := &statusRefresher{
			collect: func(executionContext context.Context) ([]ui.RepositoryStatus, error) {
				return builder.collectStatuses(executionContext, repositories)
			},
			render: func(statuses []ui.RepositoryStatus) error {
				return renderer.Render(resolvedFormat, statuses)
			},
		}

		if !watchEnabled {
			return refresher.refresh(command.Context())
		}
		return builder.watchStatuses(command.Context(), repositories, statusConfiguration, refresher.refresh)
	}
	return command
}

// statusRefresher renders collected statuses, skipping a refresh whose result matches the last frame.
// git status rewrites the index when it refreshes stat data, so watch mode sees its own queries.
type statusRefresher struct {
	collect  func(context.Context) ([]ui.RepositoryStatus, error)
	render   func([]ui.RepositoryStatus) error
	previous []ui.RepositoryStatus
	rendered bool
}

func (refresher *statusRefresher) refresh(executionContext context.Context) error {
	statuses, collectError := refresher.collect(executionContext)
	if collectError != nil {
		return collectError
	}
	if refresher.rendered && slices.EqualFunc(refresher.previous, statuses, ui.RepositoryStatus.Equal) {
		return nil
	}
	if renderError := refresher.render(statuses); renderError != nil {
		return renderError
	}
	refresher.previous = statuses
	refresher.rendered = true
	return nil
}

func (builder *RepositoryCommandBuilder) statusConfiguration() ApplicationStatusConfiguration {
	if builder.StatusConfigurationProvider == nil {
		return ApplicationStatusConfiguration{Format: string(ui.StatusFormatAuto), WatchDebounce: watch.DefaultDebounceDelay}
	}
	return builder.StatusConfigurationProvider()
}

func (builder *RepositoryCommandBuilder) openRepositories(arguments []string) ([]repository.Repository, error) {
	repositoryPaths := builder.PathResolver.Resolve(arguments)
	if len(repositoryPaths) == 0 {
		repositoryPaths = []string{defaultRepositoryPathConstant}
	}

	repositories := make([]repository.Repository, 0, len(repositoryPaths))
	for _, repositoryPath := range repositoryPaths {
		handle, openError := builder.RepositoryProvider(repositoryPath)
		if openError != nil {
			return nil, openError
		}
		repositories = append(repositories, handle)
	}
	return repositories, nil
}

// collectStatuses queries every repository concurrently. The first failure cancels the remaining queries.
func (builder *RepositoryCommandBuilder) collectStatuses(executionContext context.Context, repositories []repository.Repository) ([]ui.RepositoryStatus, error) {
	builder.logger().Debug(statusRefreshMessageConstant, zap.Int(logFieldRepositoryCountConstant, len(repositories)))

	statuses := make([]ui.RepositoryStatus, len(repositories))
	group, groupContext := errgroup.WithContext(executionContext)
	for repositoryIndex, handle := range repositories {
		repositoryIndex, handle := repositoryIndex, handle
		group.Go(func() error {
			operationContext, cancelOperation := builder.ContextAccessor.OperationContext(groupContext)
			defer cancelOperation()

			report, statusError := handle.Status(operationContext)
			if statusError != nil {
				return statusError
			}
			statuses[repositoryIndex] = ui.NewRepositoryStatus(handle.Path(), report)
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}
	return statuses, nil
}

// watchStatuses renders once, then again after every debounced change in any repository, until the context ends.
func (builder *RepositoryCommandBuilder) watchStatuses(executionContext context.Context, repositories []repository.Repository, statusConfiguration ApplicationStatusConfiguration, render func(context.Context) error) error {
	debounceDelay := statusConfiguration.WatchDebounce
	if debounceDelay <= 0 {
		debounceDelay = watch.DefaultDebounceDelay
	}

	watchers := make([]*watch.RepositoryWatcher, 0, len(repositories))
	defer func() {
		for _, repositoryWatcher := range watchers {
			_ = repositoryWatcher.Close()
		}
	}()

	for _, handle := range repositories {
		repositoryWatcher, watcherError := watch.NewRepositoryWatcher(handle.Path(), debounceDelay, builder.logger())
		if watcherError != nil {
			return fmt.Errorf(watcherCreationErrorTemplateConstant, handle.Path(), watcherError)
		}
		watchers = append(watchers, repositoryWatcher)
	}

	group, groupContext := errgroup.WithContext(executionContext)
	changes := make(chan struct{}, 1)
	for _, repositoryWatcher := range watchers {
		repositoryWatcher := repositoryWatcher
		group.Go(func() error {
			return repositoryWatcher.Run(groupContext)
		})
		group.Go(func() error {
			for {
				select {
				case <-groupContext.Done():
					return nil
				case <-repositoryWatcher.Changes():
					select {
					case changes <- struct{}{}:
					default:
					}
				}
			}
		})
	}

	group.Go(func() error {
		if renderError := render(groupContext); renderError != nil {
			return renderError
		}
		for {
			select {
			case <-groupContext.Done():
				return nil
			case <-changes:
				if renderError := render(groupContext); renderError != nil {
					return renderError
				}
			}
		}
	})

	waitError := group.Wait()
	if errors.Is(waitError, context.Canceled) && executionContext.Err() != nil {
		return nil
	}
	return waitError
}
