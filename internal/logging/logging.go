package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the application logger. The TUI owns the terminal, so all
// logging goes to a rotated file under the user's state directory.
// An unparseable level falls back to info.
func New(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	fileLogger := &lumberjack.Logger{
		Filename:   logFilePath(),
		MaxSize:    10, // MB
		MaxBackups: 3,
		Compress:   false,
	}
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        fileLogger,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}

	return zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// Nop returns a disabled logger for tests and one-shot CLI commands.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// logFilePath returns ~/.local/state/keylcop/keylcop.log, falling back
// to the working directory when the home directory is unknown.
func logFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "keylcop.log"
	}
	return filepath.Join(home, ".local", "state", "keylcop", "keylcop.log")
}
