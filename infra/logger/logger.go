package logger

import corelogger "github.com/kilianp07/dronedispatch/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// New returns a Logger for the given component. The output format is chosen
// from APP_ENV and the minimum level from LOG_LEVEL.
func New(component string) Logger {
	return NewZerologLogger(component)
}
