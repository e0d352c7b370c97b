package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// output sits behind every logger, so Initialize also redirects component loggers created before it ran.
	output = &swappableWriter{w: newOutput(os.Stdout)}

	// Global logger instance. Usable before Initialize so package level component loggers are not silent.
	Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
)

// swappableWriter forwards to a writer that Initialize can replace at runtime.
type swappableWriter struct {
	mu sync.RWMutex
	w  zerolog.LevelWriter
}

func (s *swappableWriter) set(w zerolog.LevelWriter) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

func (s *swappableWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.Write(p)
}

func (s *swappableWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.WriteLevel(level, p)
}

func newOutput(out io.Writer, extra ...io.Writer) zerolog.LevelWriter {
	console := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    false,
	}
	// Multi-writer: console plus e.g. a log file
	return zerolog.MultiLevelWriter(append([]io.Writer{console}, extra...)...)
}

// Initialize sets up the global logger with appropriate configuration.
// Extra writers (see FileWriter) receive the same JSON events alongside the console.
func Initialize(logLevel string, extra ...io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	output.set(newOutput(os.Stdout, extra...))
	zerolog.SetGlobalLevel(ParseLevel(logLevel))

	// Replace standard log with zerolog
	log.Logger = Logger
}

// ParseLevel maps a LOG_LEVEL value to a zerolog level, defaulting to info.
func ParseLevel(logLevel string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &Logger
}

// GetForComponent returns a logger with a component field for better filtering
func GetForComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// FileWriter opens a log file for optional use alongside console logging. The caller closes it.
func FileWriter(path string) (io.WriteCloser, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return file, nil
}
