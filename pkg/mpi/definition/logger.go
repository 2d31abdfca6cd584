// Package definition holds the small set of interfaces a caller of
// pkg/mpi can swap out; today that is only the Logger.
package definition

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used throughout core and pkg/mpi.
// It intentionally mirrors the handful of levels the rest of this
// module actually calls, rather than exposing the whole of logrus.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// logrusLogger is the default Logger, backed by logrus instead of the
// standard library's log package.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewDefaultLogger builds the default Logger. rank and sessionID are
// attached to every line as structured fields so that multi-process
// output (e.g. interleaved from cmd/mpirun) can be grepped per process.
func NewDefaultLogger(rank int, sessionID string) Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logrusLogger{
		entry: l.WithFields(logrus.Fields{
			"rank":    rank,
			"session": sessionID,
		}),
	}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// NoopLogger discards everything; useful in tests that assert on
// behavior rather than log output.
type NoopLogger struct{}

func (NoopLogger) Debugf(string, ...interface{}) {}
func (NoopLogger) Infof(string, ...interface{})  {}
func (NoopLogger) Warnf(string, ...interface{})  {}
func (NoopLogger) Errorf(string, ...interface{}) {}
