package main

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// eventLog writes structured ndjson events to a file under the config
// dir and keeps an in-memory tail for the log pane.
type eventLog struct {
	logger zerolog.Logger
	tail   *tailWriter
}

type tailWriter struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	line := strings.TrimRight(string(p), "\n")
	if line != "" {
		w.lines = append(w.lines, line)
		if len(w.lines) > w.max {
			w.lines = w.lines[len(w.lines)-w.max:]
		}
	}
	return len(p), nil
}

func (w *tailWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string{}, w.lines...)
}

func newEventLog(path string, level zerolog.Level) *eventLog {
	tail := &tailWriter{max: 200}
	writers := []io.Writer{tail}
	if path != "" {
		if f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			writers = append(writers, f)
		}
	}
	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
	return &eventLog{logger: logger, tail: tail}
}

func (l *eventLog) Tail() []string {
	if l == nil {
		return nil
	}
	return l.tail.Lines()
}

func (l *eventLog) SaveFailed(productID string, err error) {
	l.logger.Error().Str("product", productID).Err(err).Msg("save failed")
}

func (l *eventLog) Saved(productID, field string) {
	l.logger.Info().Str("product", productID).Str("field", field).Msg("saved")
}

func (l *eventLog) BulkDone(title string, affected, failed int) {
	l.logger.Info().Str("action", title).Int("affected", affected).Int("failed", failed).Msg("bulk finished")
}

func (l *eventLog) UploadDone(productID string, count int, err error) {
	if err != nil {
		l.logger.Error().Str("product", productID).Err(err).Msg("upload failed")
		return
	}
	l.logger.Info().Str("product", productID).Int("images", count).Msg("upload finished")
}

func (l *eventLog) Event(msg string) {
	l.logger.Info().Msg(msg)
}
