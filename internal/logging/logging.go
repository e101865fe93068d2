// Package logging provides the structured logger used across ttyclient,
// backed by zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Field represents a key-value pair for structured log output.
type Field struct {
	Key   string
	Value any
}

// Err returns a Field carrying err under the "error" key.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Logger is an interface for structured logging. Loggers may be derived with
// With for component-scoped fields.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a new Logger that includes the given fields in all
	// subsequent entries. The original Logger is unchanged.
	With(fields ...Field) Logger

	// Close releases the log file, if the logger owns one.
	// It is safe to call multiple times.
	Close() error
}

type zerologLogger struct {
	logger zerolog.Logger
	file   *os.File
}

// New builds a Logger writing JSON lines to w at the given minimum level.
func New(w io.Writer, level zerolog.Level) Logger {
	return &zerologLogger{
		logger: zerolog.New(w).With().Str("service", "ttyclient").Timestamp().Logger().Level(level),
	}
}

// NewFile builds a Logger appending to the file at path. The parent
// directory is created if needed.
func NewFile(path string, level zerolog.Level) (Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	l := New(file, level).(*zerologLogger)
	l.file = file
	return l, nil
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zerologLogger{logger: zerolog.Nop()}
}

// ParseLevel converts a level name such as "info" to a zerolog level.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

func (z *zerologLogger) Debug(msg string, fields ...Field) {
	z.logger.Debug().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) Info(msg string, fields ...Field) {
	z.logger.Info().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) Warn(msg string, fields ...Field) {
	z.logger.Warn().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) Error(msg string, fields ...Field) {
	z.logger.Error().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) With(fields ...Field) Logger {
	return &zerologLogger{
		logger: z.logger.With().Fields(toMap(fields)).Logger(),
	}
}

func (z *zerologLogger) Close() error {
	if z.file == nil {
		return nil
	}
	err := z.file.Close()
	z.file = nil
	return err
}

// toMap converts a slice of Field into a map for zerolog.
func toMap(fields []Field) map[string]any {
	if len(fields) == 0 {
		return nil
	}

	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}

	return m
}
