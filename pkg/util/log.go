package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is the structured payload attached to a log entry.
type Fields = logrus.Fields

// Logger is shared by every netedit package. It starts at warn so the CLI
// stays quiet unless asked; SetVerbose switches to debug.
var Logger = newLogger(os.Stderr)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// SetLogLevel parses a logrus level name ("debug", "info", "warn", ...).
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetVerbose selects debug logging, or back to warn.
func SetVerbose(verbose bool) {
	if verbose {
		Logger.SetLevel(logrus.DebugLevel)
		return
	}
	Logger.SetLevel(logrus.WarnLevel)
}

func SetLogOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat switches to one JSON object per line, for `netedit serve`
// behind a log collector.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

func WithField(key string, value any) *logrus.Entry {
	return Logger.WithField(key, value)
}

func WithFields(fields Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithNode scopes an entry to the node whose interfaces are being edited.
func WithNode(node string) *logrus.Entry {
	return Logger.WithField("node", node)
}

// WithCommit scopes an entry to one change set sent to the mutation layer.
func WithCommit(node, operation string) *logrus.Entry {
	return Logger.WithFields(Fields{"node": node, "operation": operation})
}

func Debugf(format string, args ...any) {
	Logger.Debugf(format, args...)
}

func Infof(format string, args ...any) {
	Logger.Infof(format, args...)
}

func Warnf(format string, args ...any) {
	Logger.Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	Logger.Errorf(format, args...)
}
