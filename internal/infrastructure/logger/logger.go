package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. Production and staging log JSON; anything
// else gets human-readable text.
func New(level, env string) *logrus.Logger {
	return newWithOutput(level, env, os.Stdout)
}

func newWithOutput(level, env string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	switch strings.ToLower(env) {
	case "production", "staging":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
		l.Warnf("invalid log level %q, defaulting to info", level)
		return l
	}
	l.SetLevel(lvl)
	return l
}
