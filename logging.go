package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taglme/quirk/internal/config"
)

// LogManager owns the root logger: console output plus a timestamped file
// under the logs directory.
type LogManager struct {
	logFile     *os.File
	logger      zerolog.Logger
	logFilePath string
	logsDir     string
}

// NewLogManager creates a log manager writing to out and, when enabled, to
// a new file in cfg.Logging.Dir. File problems downgrade to console only.
func NewLogManager(cfg *config.Config, out io.Writer) *LogManager {
	lm := &LogManager{logsDir: cfg.Logging.Dir}

	var console io.Writer = out
	if cfg.Logging.Format == "console" {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	writers := []io.Writer{console}

	if cfg.Logging.File && lm.logsDir != "" {
		if err := lm.openLogFile(); err != nil {
			fmt.Fprintf(out, "Warning: Failed to open log file: %v\n", err)
		} else {
			writers = append(writers, lm.logFile)
		}
	}

	lm.logger = zerolog.New(io.MultiWriter(writers...)).
		Level(parseLevel(cfg.Logging.Level)).
		With().Timestamp().Logger()

	if lm.logFilePath != "" {
		lm.logger.Info().Str("path", lm.logFilePath).Msg("Log file created")
	}
	return lm
}

func (lm *LogManager) openLogFile() error {
	if err := os.MkdirAll(lm.logsDir, 0o755); err != nil {
		return err
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	lm.logFilePath = filepath.Join(lm.logsDir, fmt.Sprintf("%s_%s.log", AppName, timestamp))

	var err error
	lm.logFile, err = os.OpenFile(lm.logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		lm.logFilePath = ""
	}
	return err
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the root logger.
func (lm *LogManager) Logger() zerolog.Logger { return lm.logger }

// Component returns a sub-logger tagged with name.
func (lm *LogManager) Component(name string) zerolog.Logger {
	return lm.logger.With().Str("component", name).Logger()
}

// GetLogFilePath returns the current log file path, empty when logging to
// the console only.
func (lm *LogManager) GetLogFilePath() string {
	return lm.logFilePath
}

// Close closes the log file
func (lm *LogManager) Close() {
	if lm.logFile != nil {
		lm.logger.Info().Msg("Closing log file")
		lm.logFile.Close()
		lm.logFile = nil
	}
}
