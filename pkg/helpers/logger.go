package helpers

import (
	"os"

	"github.com/sirupsen/logrus"
)

// appFields stamps every entry with the service name and environment.
type appFields struct {
	app string
	env string
}

func (h appFields) Levels() []logrus.Level { return logrus.AllLevels }

func (h appFields) Fire(e *logrus.Entry) error {
	e.Data["app"] = h.app
	e.Data["env"] = h.env
	return nil
}

// NewLogger creates a configured Logrus logger
func NewLogger(appName, env string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.AddHook(appFields{app: appName, env: env})
	logger.Debug("logger initialized")
	return logger
}

// LogError logs msg at error level with err under the "error" key.
func LogError(logger *logrus.Logger, msg string, err error, fields logrus.Fields) {
	entry := logger.WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

func LogInfo(logger *logrus.Logger, msg string, fields logrus.Fields) {
	logger.WithFields(fields).Info(msg)
}
