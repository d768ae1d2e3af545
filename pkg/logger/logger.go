package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSize = 10
	maxBack = 5
	maxAge  = 30
)

// NewLogger builds a console logger that also writes to a rotating file when
// filePath is set. An unparsable level falls back to info.
func NewLogger(filePath, serviceName, level string) (zerolog.Logger, error) {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	writers := []io.Writer{consoleWriter}

	if filePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filePath, // log file location
			MaxSize:    maxSize,  // megabytes before rotation
			MaxBackups: maxBack,  // number of old files to retain
			MaxAge:     maxAge,   // days to retain rotated files
			Compress:   true,
		})
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Logger().
		Level(lvl)

	logger.Info().
		Str("logsFilePath", filePath).
		Str("level", lvl.String()).
		Msg("logger initialized")

	return logger, nil
}
