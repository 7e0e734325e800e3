// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Setup applies level ("debug", "info", ...) and format ("text" or "json")
// to the standard logger. An unknown level falls back to info.
func Setup(level, format string, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	logrus.SetOutput(out)

	if format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableLevelTruncation: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
