package logger

import (
	"os"

	"github.com/remiges-tech/logharbour/logharbour"
)

// LoadLogger creates a new logger. By default, it creates a LogHarbour logger.
func LoadLogger(appName string) Logger {
	// Create a new LogHarbour logger with stdout as the default writer
	logger := logharbour.NewLogger(&logharbour.LoggerContext{}, appName, os.Stdout)

	// Wrap the *logharbour.Logger in a LogHarbour
	return &LogHarbour{logger}
}

// LoadRawLogger is like LoadLogger but returns the underlying
// *logharbour.Logger directly, for callers (the pdoflow-workerd worker
// and pool supervisor) that need its chainable Info()/Warn()/Error() levels
// rather than the single-method logger.Logger interface.
func LoadRawLogger(appName string) *logharbour.Logger {
	return logharbour.NewLogger(&logharbour.LoggerContext{}, appName, os.Stdout)
}
