package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logLevelDebugStringConstant                 = "debug"
	logLevelInfoStringConstant                  = "info"
	logLevelWarnStringConstant                  = "warn"
	logLevelErrorStringConstant                 = "error"
	logFormatStructuredStringConstant           = "structured"
	logFormatConsoleStringConstant              = "console"
	unsupportedLogLevelTemplateConstant         = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant        = "unsupported log format: %s"
	defaultLogFileMaximumSizeConstant           = 10
	defaultLogFileMaximumBackupsConstant        = 3
	defaultLogFileMaximumAgeDaysConstant        = 28
	logFileCloseErrorTemplateConstant           = "failed to close log file %s: %w"
	logFileDirectoryPermissionConstant          = 0o755
	logFileDirectoryCreateErrorTemplateConstant = "failed to create log directory for %s: %w"
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

// LoggerOptions describes the logger a factory should build.
type LoggerOptions struct {
	Level  LogLevel
	Format LogFormat
	// FilePath redirects log output to a rotated file instead of standard error.
	FilePath             string
	MaximumSizeMegabytes int
	MaximumBackups       int
	MaximumAgeDays       int
}

// LoggerFactory builds zap.Logger instances with consistent configuration and owns any file sinks it opens.
type LoggerFactory struct {
	mutex     sync.Mutex
	fileSinks []*lumberjack.Logger
}

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// NewLoggerFactory constructs a new logger factory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLogger produces a zap.Logger honoring the requested level, format and destination.
func (factory *LoggerFactory) CreateLogger(options LoggerOptions) (*zap.Logger, error) {
	normalizedLevel := LogLevel(strings.ToLower(strings.TrimSpace(string(options.Level))))
	zapLogLevel, levelExists := logLevelMapping[normalizedLevel]
	if !levelExists {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, options.Level)
	}

	encoder, encoderError := buildEncoder(options.Format)
	if encoderError != nil {
		return nil, encoderError
	}

	sink, sinkError := factory.buildSink(options)
	if sinkError != nil {
		return nil, sinkError
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(zapLogLevel))
	return zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))), nil
}

// Close releases every log file opened by the factory.
func (factory *LoggerFactory) Close() error {
	if factory == nil {
		return nil
	}

	factory.mutex.Lock()
	defer factory.mutex.Unlock()

	var closeErrors []error
	for _, fileSink := range factory.fileSinks {
		if closeError := fileSink.Close(); closeError != nil {
			closeErrors = append(closeErrors, fmt.Errorf(logFileCloseErrorTemplateConstant, fileSink.Filename, closeError))
		}
	}
	factory.fileSinks = nil

	return errors.Join(closeErrors...)
}

func buildEncoder(requestedLogFormat LogFormat) (zapcore.Encoder, error) {
	encoderConfiguration := zap.NewProductionEncoderConfig()
	encoderConfiguration.EncodeTime = zapcore.ISO8601TimeEncoder

	switch LogFormat(strings.ToLower(strings.TrimSpace(string(requestedLogFormat)))) {
	case LogFormatStructured:
		return zapcore.NewJSONEncoder(encoderConfiguration), nil
	case LogFormatConsole:
		encoderConfiguration.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfiguration), nil
	default:
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}
}

func (factory *LoggerFactory) buildSink(options LoggerOptions) (zapcore.WriteSyncer, error) {
	trimmedFilePath := strings.TrimSpace(options.FilePath)
	if len(trimmedFilePath) == 0 {
		return zapcore.Lock(os.Stderr), nil
	}

	if directoryError := ensureParentDirectory(trimmedFilePath); directoryError != nil {
		return nil, directoryError
	}

	fileSink := &lumberjack.Logger{
		Filename:   trimmedFilePath,
		MaxSize:    positiveOrDefault(options.MaximumSizeMegabytes, defaultLogFileMaximumSizeConstant),
		MaxBackups: positiveOrDefault(options.MaximumBackups, defaultLogFileMaximumBackupsConstant),
		MaxAge:     positiveOrDefault(options.MaximumAgeDays, defaultLogFileMaximumAgeDaysConstant),
	}

	factory.mutex.Lock()
	factory.fileSinks = append(factory.fileSinks, fileSink)
	factory.mutex.Unlock()

	return zapcore.AddSync(fileSink), nil
}

func ensureParentDirectory(filePath string) error {
	parentDirectory := filepath.Dir(filePath)
	if parentDirectory == "." {
		return nil
	}
	if mkdirError := os.MkdirAll(parentDirectory, logFileDirectoryPermissionConstant); mkdirError != nil {
		return fmt.Errorf(logFileDirectoryCreateErrorTemplateConstant, filePath, mkdirError)
	}
	return nil
}

func positiveOrDefault(value int, defaultValue int) int {
	if value > 0 {
		return value
	}
	return defaultValue
}
