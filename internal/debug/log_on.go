//go:build debug

package debug

import (
	"go.uber.org/zap"
)

var debug = newLogger()

func newLogger() *zap.Logger {
	l, err := zap.NewDevelopment(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop()
	}
	return l.Named("debug")
}

// Log writes msg to the debug logger. msg must be a string, func() string or
// fmt.Stringer.
func Log(msg interface{}, fields ...zap.Field) {
	debug.Debug(getStringValue(msg), fields...)
}
