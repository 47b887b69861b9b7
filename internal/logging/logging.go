// Package logging provides the single structured logger instance threaded
// through every stage of the harness.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus.Logger configured for the harness's CLI tools: text
// output to stderr (so stdout stays free for report output), the given
// level, and full timestamps for correlating entries against the fixed
// auxiliary log files.
func New(level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// NewSilent returns a logger that discards everything — used by tests and
// library callers that wire in their own logger.
func NewSilent() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Stage returns a logger.Entry pre-populated with a "stage" field, used to
// tag every log line from one pipeline stage (extract, match, graph, insert,
// remove, search).
func Stage(l *logrus.Logger, stage string) *logrus.Entry {
	return l.WithField("stage", stage)
}
