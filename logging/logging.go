// Package logging provides structured logging for the launcher.
//
// It wraps Go's standard log/slog package with additional features:
//   - Destination-based filtering (config, generator, workshop, process, HTTP)
//   - Verbosity levels (Error, Warn, Info, Debug)
//   - Configuration from the [ServerLauncher] section
//   - An operator console output with severity-colored prefixes
//   - Support for both structured and printf-style logging
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/toxikkmodding/toxikk-launcher/config"
	"github.com/toxikkmodding/toxikk-launcher/console"
)

// Verbosity levels for logging
type Verbosity int

// Verbosity levels for logging.
const (
	// VerbosityError logs only error messages
	VerbosityError Verbosity = iota
	// VerbosityWarn logs warnings and errors
	VerbosityWarn
	// VerbosityInfo logs informational messages, warnings, and errors
	VerbosityInfo
	// VerbosityDebug logs all messages including debug information
	VerbosityDebug
)

// Destination represents where logs should be written
type Destination int

// Destination categories for log filtering.
const (
	DestinationGeneral   Destination = iota // General application logs
	DestinationConfig                       // Launcher configuration logs
	DestinationGenerator                    // Config generation warnings
	DestinationWorkshop                     // steamcmd and zip item logs
	DestinationProcess                      // Server process lifecycle logs
	DestinationHTTP                         // HTTP control API logs
)

// OutputConsole selects the colored operator console instead of slog's text format
const OutputConsole = "console"

// Config holds logging configuration
type Config struct {
	// OutputPath is where logs are written ("console", "stdout", "stderr", or file path)
	OutputPath string
	// MinVerbosity is the minimum verbosity level to log
	MinVerbosity Verbosity
	// EnabledDestinations specifies which destinations are enabled
	// If nil or empty, all destinations are enabled
	EnabledDestinations map[Destination]bool
	// Writer overrides OutputPath when set
	Writer io.Writer
	// Console receives output when OutputPath is "console"; defaults to a console on stderr
	Console *console.Console
}

// Logger wraps slog.Logger with destination and verbosity filtering
type Logger struct {
	config *Config
	logger *slog.Logger
	level  *slog.LevelVar
}

// New creates a new Logger with the given configuration
func New(config *Config) (*Logger, error) {
	if config == nil {
		config = &Config{
			OutputPath:   OutputConsole,
			MinVerbosity: VerbosityInfo,
		}
	}

	slogLevel := new(slog.LevelVar)
	slogLevel.Set(slogLevelFor(config.MinVerbosity))

	// The console handler renders colored prefixes instead of key=value records
	if config.OutputPath == OutputConsole && config.Writer == nil {
		con := config.Console
		if con == nil {
			con = console.New(os.Stderr)
		}
		return &Logger{
			config: config,
			logger: slog.New(newConsoleHandler(con, slogLevel)),
			level:  slogLevel,
		}, nil
	}

	// Determine output writer
	writer := config.Writer
	if writer == nil {
		switch config.OutputPath {
		case "stdout", "":
			writer = os.Stdout
		case "stderr":
			writer = os.Stderr
		default:
			// File path
			f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
			if err != nil {
				return nil, err
			}
			writer = f
		}
	}

	// Create slog handler with options
	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}

	handler := slog.NewTextHandler(writer, opts)
	logger := slog.New(handler)

	return &Logger{
		config: config,
		logger: logger,
		level:  slogLevel,
	}, nil
}

// slogLevelFor converts our verbosity to a slog level
func slogLevelFor(v Verbosity) slog.Level {
	switch v {
	case VerbosityError:
		return slog.LevelError
	case VerbosityWarn:
		return slog.LevelWarn
	case VerbosityDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// SetVerbosity changes the minimum verbosity of a running logger
func (l *Logger) SetVerbosity(v Verbosity) {
	l.level.Set(slogLevelFor(v))
}

// Verbosity returns the current minimum verbosity
func (l *Logger) Verbosity() Verbosity {
	switch l.level.Level() {
	case slog.LevelError:
		return VerbosityError
	case slog.LevelWarn:
		return VerbosityWarn
	case slog.LevelDebug:
		return VerbosityDebug
	default:
		return VerbosityInfo
	}
}

// Default returns a console logger at info verbosity
func Default() *Logger {
	logger, _ := New(nil)
	return logger
}

// FromSection creates a new Logger from the launcher configuration section.
// It reads the following keys:
//   - Log: Output path (console, stdout, stderr, or file path). Defaults to console.
//   - LogVerbosity: Minimum verbosity level (ERROR, WARN, INFO, DEBUG). Defaults to INFO.
//   - LogDestinations: Comma-separated list of enabled destinations (GENERAL, CONFIG, GENERATOR, WORKSHOP, PROCESS, HTTP). Defaults to all enabled.
//
// Example configuration:
//
//	[ServerLauncher]
//	Log=launcher.log
//	LogVerbosity=DEBUG
//	LogDestinations=GENERATOR, PROCESS
func FromSection(sec *config.Section, con *console.Console) (*Logger, error) {
	if sec == nil {
		return New(&Config{OutputPath: OutputConsole, MinVerbosity: VerbosityInfo, Console: con})
	}

	// Parse output path
	outputPath := sec.GetString("Log", OutputConsole)

	// Parse verbosity
	verbosity := ParseVerbosity(sec.GetString("LogVerbosity", ""), VerbosityInfo)

	// Parse enabled destinations
	var enabledDestinations map[Destination]bool
	if logDestinations := sec.GetString("LogDestinations", ""); logDestinations != "" {
		enabledDestinations = make(map[Destination]bool)
		parts := strings.Split(logDestinations, ",")
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			switch part {
			case "GENERAL":
				enabledDestinations[DestinationGeneral] = true
			case "CONFIG":
				enabledDestinations[DestinationConfig] = true
			case "GENERATOR":
				enabledDestinations[DestinationGenerator] = true
			case "WORKSHOP":
				enabledDestinations[DestinationWorkshop] = true
			case "PROCESS":
				enabledDestinations[DestinationProcess] = true
			case "HTTP":
				enabledDestinations[DestinationHTTP] = true
			}
		}
	}

	return New(&Config{
		OutputPath:          outputPath,
		MinVerbosity:        verbosity,
		EnabledDestinations: enabledDestinations,
		Console:             con,
	})
}

// ParseVerbosity converts a verbosity name, returning def for unknown names
func ParseVerbosity(name string, def Verbosity) Verbosity {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ERROR":
		return VerbosityError
	case "WARN", "WARNING":
		return VerbosityWarn
	case "INFO":
		return VerbosityInfo
	case "DEBUG":
		return VerbosityDebug
	default:
		return def
	}
}

// shouldLog checks if a log should be written based on destination filtering
func (l *Logger) shouldLog(dest Destination) bool {
	// If no destinations are configured, allow all
	if len(l.config.EnabledDestinations) == 0 {
		return true
	}
	return l.config.EnabledDestinations[dest]
}

// destinationString returns a string representation of the destination
func destinationString(dest Destination) string {
	switch dest {
	case DestinationGeneral:
		return "general"
	case DestinationConfig:
		return "config"
	case DestinationGenerator:
		return "generator"
	case DestinationWorkshop:
		return "workshop"
	case DestinationProcess:
		return "process"
	case DestinationHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// Error logs an error message
func (l *Logger) Error(dest Destination, msg string, args ...any) {
	if !l.shouldLog(dest) {
		return
	}
	l.logger.Error(msg, append([]any{"destination", destinationString(dest)}, args...)...)
}

// Warn logs a warning message
func (l *Logger) Warn(dest Destination, msg string, args ...any) {
	if !l.shouldLog(dest) {
		return
	}
	l.logger.Warn(msg, append([]any{"destination", destinationString(dest)}, args...)...)
}

// Info logs an info message
func (l *Logger) Info(dest Destination, msg string, args ...any) {
	if !l.shouldLog(dest) {
		return
	}
	l.logger.Info(msg, append([]any{"destination", destinationString(dest)}, args...)...)
}

// Debug logs a debug message
func (l *Logger) Debug(dest Destination, msg string, args ...any) {
	if !l.shouldLog(dest) {
		return
	}
	l.logger.Debug(msg, append([]any{"destination", destinationString(dest)}, args...)...)
}

// Errorf logs an error message with Printf-style formatting
func (l *Logger) Errorf(dest Destination, format string, args ...any) {
	if !l.shouldLog(dest) {
		return
	}
	l.logger.Error(formatMessage(format, args...), "destination", destinationString(dest))
}

// Warnf logs a warning message with Printf-style formatting
func (l *Logger) Warnf(dest Destination, format string, args ...any) {
	if !l.shouldLog(dest) {
		return
	}
	l.logger.Warn(formatMessage(format, args...), "destination", destinationString(dest))
}

// Infof logs an info message with Printf-style formatting
func (l *Logger) Infof(dest Destination, format string, args ...any) {
	if !l.shouldLog(dest) {
		return
	}
	l.logger.Info(formatMessage(format, args...), "destination", destinationString(dest))
}

// Debugf logs a debug message with Printf-style formatting
func (l *Logger) Debugf(dest Destination, format string, args ...any) {
	if !l.shouldLog(dest) {
		return
	}
	l.logger.Debug(formatMessage(format, args...), "destination", destinationString(dest))
}

// formatMessage is a helper to format Printf-style messages
func formatMessage(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
