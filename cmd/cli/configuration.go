package cli

import (
	"time"

	"github.com/temirov/gitasync/internal/ui"
	"github.com/temirov/gitasync/internal/utils"
	"github.com/temirov/gitasync/internal/watch"
)

const (
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	commonLogFileConfigKeyConstant          = commonConfigurationKeyConstant + ".log_file"
	executorConfigurationKeyConstant        = "executor"
	executorMaxOutputBytesConfigKeyConstant = executorConfigurationKeyConstant + ".max_output_bytes"
	executorTimeoutConfigKeyConstant        = executorConfigurationKeyConstant + ".timeout"
	statusConfigurationKeyConstant          = "status"
	statusFormatConfigKeyConstant           = statusConfigurationKeyConstant + ".format"
	statusWatchDebounceConfigKeyConstant    = statusConfigurationKeyConstant + ".watch_debounce"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common   ApplicationCommonConfiguration   `mapstructure:"common"`
	Executor ApplicationExecutorConfiguration `mapstructure:"executor"`
	Status   ApplicationStatusConfiguration   `mapstructure:"status"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`
}

// ApplicationExecutorConfiguration controls how git processes are run.
type ApplicationExecutorConfiguration struct {
	// MaxOutputBytes bounds each captured output stream; zero leaves capture unbounded.
	MaxOutputBytes int `mapstructure:"max_output_bytes"`
	// Timeout bounds each git operation; zero disables the deadline.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ApplicationStatusConfiguration controls status rendering.
type ApplicationStatusConfiguration struct {
	Format        string        `mapstructure:"format"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
}

// DefaultConfigurationValues returns the defaults applied beneath embedded and user configuration.
func DefaultConfigurationValues() map[string]any {
	return map[string]any{
		commonLogLevelConfigKeyConstant:         string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant:        string(utils.LogFormatConsole),
		commonLogFileConfigKeyConstant:          "",
		executorMaxOutputBytesConfigKeyConstant: 0,
		executorTimeoutConfigKeyConstant:        time.Duration(0),
		statusFormatConfigKeyConstant:           string(ui.StatusFormatAuto),
		statusWatchDebounceConfigKeyConstant:    watch.DefaultDebounceDelay,
	}
}
