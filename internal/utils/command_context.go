package utils

import (
	"context"
	"time"
)

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	operationTimeoutContextKeyConstant      = commandContextKey("operationTimeout")
)

type commandContextKey string

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, available := executionContext.Value(configurationFilePathContextKeyConstant).(string)
	return configurationFilePath, available
}

// WithOperationTimeout records the per-operation deadline requested for git invocations.
func (accessor CommandContextAccessor) WithOperationTimeout(parentContext context.Context, timeout time.Duration) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, operationTimeoutContextKeyConstant, timeout)
}

// OperationContext derives a context bounded by the recorded operation timeout.
// Without a positive timeout the returned context only inherits cancellation.
func (accessor CommandContextAccessor) OperationContext(executionContext context.Context) (context.Context, context.CancelFunc) {
	if executionContext == nil {
		executionContext = context.Background()
	}
	timeout, available := executionContext.Value(operationTimeoutContextKeyConstant).(time.Duration)
	if !available || timeout <= 0 {
		return context.WithCancel(executionContext)
	}
	return context.WithTimeout(executionContext, timeout)
}
