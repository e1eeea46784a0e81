package logging

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Options configures the global logger
type Options struct {
	Level  string
	Format string
	File   string
	Out    io.Writer
}

// Setup configures the standard logrus logger. Output goes to Out (stderr
// by default) and is tee'd into File when set. The returned function closes
// the log file.
func Setup(opts Options) (func() error, error) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", opts.Level)
	}
	logrus.SetLevel(level)

	switch opts.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	closer := func() error { return nil }
	if opts.File == "" {
		logrus.SetOutput(out)
		return closer, nil
	}

	file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logrus.SetOutput(out)
		logrus.WithError(err).Error("Could not create file for logging")
		return closer, nil
	}
	logrus.SetOutput(io.MultiWriter(out, file))
	return file.Close, nil
}
