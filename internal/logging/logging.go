package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// New configures the standard logrus logger and returns the root entry
// every component derives from.
func New(level, format string) *log.Entry {
	logger := log.StandardLogger()
	configure(logger, os.Stdout, level, format)
	return logger.WithField("service", "bookstore")
}

func configure(logger *log.Logger, out io.Writer, level, format string) {
	logger.SetOutput(out)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
}

// Discard returns an entry that drops everything, for tests.
func Discard() *log.Entry {
	logger := log.New()
	configure(logger, io.Discard, "panic", "text")
	return logger.WithField("service", "bookstore")
}
