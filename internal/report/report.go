// Package report is the observability collaborator: a fire-and-forget
// error sink that never blocks the message pipeline.
package report

import (
	"log/slog"
)

type Reporter interface {
	ReportError(err error)
}

// Logger reports errors through slog.
type Logger struct {
	log *slog.Logger
}

func NewLogger(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log}
}

func (r *Logger) ReportError(err error) {
	if err == nil {
		return
	}
	r.log.Error("pipeline_error", "error", err.Error())
}

// Nop drops every report. Used in tests.
type Nop struct{}

func (Nop) ReportError(err error) {}
