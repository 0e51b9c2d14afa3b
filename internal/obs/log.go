package obs

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggerOnce sync.Once
	logger     *logrus.Logger
)

// Logger returns the shared structured logger used across the service.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stdout)
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
		logger.SetLevel(logrus.InfoLevel)
	})
	return logger
}

// LogRequest emits a structured log line with common HTTP fields.
func LogRequest(fields map[string]any) {
	Logger().WithFields(logrus.Fields(fields)).Info("http request")
}

// Audit emits a structured audit event for a critical action.
func Audit(action, resourceType, resourceID string, fields map[string]any) {
	entry := Logger().WithFields(logrus.Fields{
		"audit":         true,
		"action":        action,
		"resource_type": resourceType,
		"resource_id":   resourceID,
	})
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields))
	}
	entry.Info(action)
}
