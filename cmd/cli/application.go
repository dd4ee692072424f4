package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/gitasync/internal/execshell"
	"github.com/temirov/gitasync/internal/gitrepo"
	"github.com/temirov/gitasync/internal/ui"
	"github.com/temirov/gitasync/internal/utils"
	flagutils "github.com/temirov/gitasync/internal/utils/flags"
	pathutils "github.com/temirov/gitasync/internal/utils/path"
	"github.com/temirov/gitasync/pkg/repository"
)

const (
	applicationNameConstant                        = "gitasync"
	applicationShortDescriptionConstant            = "Run git repository operations with structured, cancellable execution"
	applicationLongDescriptionConstant             = "gitasync wraps git status, init, clone, add, commit and push behind a typed repository facade with structured status reports and bounded, cancellable process execution."
	configFileFlagNameConstant                     = "config"
	configFileFlagUsageConstant                    = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                       = "log-level"
	logLevelFlagUsageConstant                      = "Override the configured log level."
	logFormatFlagNameConstant                      = "log-format"
	logFormatFlagUsageConstant                     = "Override the configured log format."
	logFileFlagNameConstant                        = "log-file"
	logFileFlagUsageConstant                       = "Write logs to a rotated file instead of standard error."
	timeoutFlagNameConstant                        = "timeout"
	timeoutFlagUsageConstant                       = "Abort each git operation after this duration (0 disables the deadline)."
	repositoryFlagNameConstant                     = "repository"
	repositoryFlagShorthandConstant                = "C"
	repositoryFlagUsageConstant                    = "Repository path used by add, commit and push."
	defaultRepositoryPathConstant                  = "."
	environmentPrefixConstant                      = "GITASYNC"
	configurationSearchPathEnvironmentNameConstant = "GITASYNC_CONFIG_SEARCH_PATH"
	configurationNameConstant                      = "config"
	configurationTypeConstant                      = "yaml"
	userConfigurationDirectoryNameConstant         = "gitasync"
	defaultConfigurationSearchPathConstant         = "."
	configurationInitializedMessageConstant        = "configuration initialized"
	configurationLogLevelFieldConstant             = "log_level"
	configurationLogFormatFieldConstant            = "log_format"
	configurationFileFieldConstant                 = "config_file"
	configurationTimeoutFieldConstant              = "timeout"
	configurationMaxOutputFieldConstant            = "max_output_bytes"
	configurationLoadErrorTemplateConstant         = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant            = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant                = "unable to flush logger: %w"
	executorCreationErrorTemplateConstant          = "unable to create git executor: %w"
	negativeTimeoutErrorTemplateConstant           = "timeout must not be negative: %s"
	negativeMaxOutputErrorTemplateConstant         = "executor.max_output_bytes must not be negative: %d"
	executorNotInitializedMessageConstant          = "git executor not initialized"
)

// Application wires the Cobra root command, configuration loader, structured logger and git executor.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	logFileFlagValue       string
	timeoutFlagValue       time.Duration
	repositoryFlagValue    string
	commandContextAccessor utils.CommandContextAccessor
	pathResolver           *pathutils.RepositoryPathResolver
	gitExecutor            repository.GitExecutor
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		configurationSearchPaths(),
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		pathResolver:           pathutils.NewRepositoryPathResolver(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	persistentFlags := cobraCommand.PersistentFlags()
	persistentFlags.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	persistentFlags.StringVar(
		&application.logFormatFlagValue,
		logFormatFlagNameConstant,
		"",
		flagutils.FormatChoiceUsage(string(utils.LogFormatConsole), []string{string(utils.LogFormatStructured), string(utils.LogFormatConsole)}, logFormatFlagUsageConstant),
	)
	persistentFlags.StringVar(&application.logFileFlagValue, logFileFlagNameConstant, "", logFileFlagUsageConstant)
	persistentFlags.DurationVar(&application.timeoutFlagValue, timeoutFlagNameConstant, 0, timeoutFlagUsageConstant)
	persistentFlags.StringVarP(&application.repositoryFlagValue, repositoryFlagNameConstant, repositoryFlagShorthandConstant, defaultRepositoryPathConstant, repositoryFlagUsageConstant)

	commandBuilder := RepositoryCommandBuilder{
		LoggerProvider:              application.currentLogger,
		RepositoryProvider:          application.openRepository,
		RepositoryPathProvider:      application.repositoryPath,
		StatusConfigurationProvider: application.statusConfiguration,
		ContextAccessor:             application.commandContextAccessor,
		PathResolver:                application.pathResolver,
	}
	cobraCommand.AddCommand(commandBuilder.Build()...)

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy, cancelling it on SIGINT or SIGTERM, and flushes the logger.
func (application *Application) Execute() error {
	signalContext, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	executionError := application.rootCommand.ExecuteContext(signalContext)
	if syncError := application.flushLogger(); syncError != nil {
		return errors.Join(executionError, fmt.Errorf(loggerSyncErrorTemplateConstant, syncError))
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func configurationSearchPaths() []string {
	searchPaths := make([]string, 0, 3)
	if overridePath := strings.TrimSpace(os.Getenv(configurationSearchPathEnvironmentNameConstant)); len(overridePath) > 0 {
		searchPaths = append(searchPaths, overridePath)
	}
	searchPaths = append(searchPaths, defaultConfigurationSearchPathConstant)
	if userConfigurationDirectory, directoryError := os.UserConfigDir(); directoryError == nil {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, userConfigurationDirectoryNameConstant))
	}
	return searchPaths
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(
		application.pathResolver.ExpandHome(application.configurationFilePath),
		DefaultConfigurationValues(),
		&application.configuration,
	)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration
	application.applyFlagOverrides(command)

	if application.configuration.Executor.Timeout < 0 {
		return fmt.Errorf(negativeTimeoutErrorTemplateConstant, application.configuration.Executor.Timeout)
	}
	if application.configuration.Executor.MaxOutputBytes < 0 {
		return fmt.Errorf(negativeMaxOutputErrorTemplateConstant, application.configuration.Executor.MaxOutputBytes)
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(utils.LoggerOptions{
		Level:    utils.LogLevel(application.configuration.Common.LogLevel),
		Format:   utils.LogFormat(application.configuration.Common.LogFormat),
		FilePath: application.pathResolver.ExpandHome(application.configuration.Common.LogFile),
	})
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	executorOptions := []execshell.ShellExecutorOption{execshell.WithTextSanitizer(gitrepo.RedactCredentials)}
	if application.humanReadableLoggingEnabled() {
		executorOptions = append(executorOptions, execshell.WithCommandEventObserver(ui.NewConsoleCommandEventLogger(logger)))
	}
	shellExecutor, executorError := execshell.NewShellExecutor(
		logger,
		execshell.NewBoundedOSCommandRunner(application.configuration.Executor.MaxOutputBytes),
		executorOptions...,
	)
	if executorError != nil {
		return fmt.Errorf(executorCreationErrorTemplateConstant, executorError)
	}
	application.gitExecutor = shellExecutor

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.Duration(configurationTimeoutFieldConstant, application.configuration.Executor.Timeout),
		zap.Int(configurationMaxOutputFieldConstant, application.configuration.Executor.MaxOutputBytes),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(command.Context(), application.configurationMetadata.ConfigFileUsed)
		updatedContext = application.commandContextAccessor.WithOperationTimeout(updatedContext, application.configuration.Executor.Timeout)
		command.SetContext(updatedContext)
	}

	return nil
}

func (application *Application) applyFlagOverrides(command *cobra.Command) {
	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	if application.persistentFlagChanged(command, logFileFlagNameConstant) {
		application.configuration.Common.LogFile = application.logFileFlagValue
	}
	if application.persistentFlagChanged(command, timeoutFlagNameConstant) {
		application.configuration.Executor.Timeout = application.timeoutFlagValue
	}
}

func (application *Application) openRepository(path string) (repository.Repository, error) {
	if application.gitExecutor == nil {
		return repository.Repository{}, errors.New(executorNotInitializedMessageConstant)
	}
	return repository.New(application.pathResolver.ExpandHome(path), repository.Dependencies{
		GitExecutor: application.gitExecutor,
		Logger:      application.logger,
	})
}

func (application *Application) currentLogger() *zap.Logger {
	return application.logger
}

func (application *Application) repositoryPath() string {
	return application.repositoryFlagValue
}

func (application *Application) statusConfiguration() ApplicationStatusConfiguration {
	return application.configuration.Status
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) flushLogger() error {
	var syncError error
	if application.logger != nil {
		syncError = application.logger.Sync()
	}
	closeError := application.loggerFactory.Close()

	if errors.Is(syncError, syscall.ENOTSUP) || errors.Is(syncError, syscall.EINVAL) {
		syncError = nil
	}
	return errors.Join(syncError, closeError)
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}
