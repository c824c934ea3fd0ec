//go:build !debug

package debug

import "go.uber.org/zap"

// Log is a no-op unless built with the debug tag.
func Log(msg interface{}, fields ...zap.Field) {}
