package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// LogTimeFormat matches the log file layout of earlier releases.
const LogTimeFormat = "2006-01-02 15:04:05"

// LogSink writes events through an hclog logger.
type LogSink struct {
	logger hclog.Logger
}

// NewLogSink logs to every writer given.
func NewLogSink(name string, ws ...io.Writer) *LogSink {
	return &LogSink{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:       name,
			Level:      hclog.Info,
			Output:     io.MultiWriter(ws...),
			TimeFormat: LogTimeFormat,
		}),
	}
}

// Logger exposes the underlying logger for callers that want to log
// outside the progress stream.
func (s *LogSink) Logger() hclog.Logger {
	return s.logger
}

func (s *LogSink) Handle(e Event) {
	args := make([]interface{}, 0, 4)
	if e.RunID != "" {
		args = append(args, "run", shortID(e.RunID))
	}
	if e.Stage != "" {
		args = append(args, "stage", e.Stage)
	}
	msg := e.String()
	switch e.Level {
	case LevelWarn:
		s.logger.Warn(msg, args...)
	case LevelError:
		s.logger.Error(msg, args...)
	default:
		s.logger.Info(msg, args...)
	}
}

// OpenLogFile opens path for appending, creating parent directories.
func OpenLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
