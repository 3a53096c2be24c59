package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

func SetupLogging(level logrus.Level) *logrus.Logger {
	return newLogger(os.Stdout, level)
}

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	return &logrus.Logger{
		Formatter: &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyLevel: "loglevel",
			},
		},
		Out:   out,
		Level: level,
		Hooks: make(logrus.LevelHooks),
	}
}
