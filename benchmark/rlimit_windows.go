//go:build windows
// +build windows

package benchmark

import (
	"runtime/debug"

	"go.uber.org/zap"
)

// SetMaxResources raises the Go runtime thread limit. Windows has no
// equivalent of the open file rlimit.
func SetMaxResources(logger *zap.Logger) error {
	const maxThreads = 8000
	debug.SetMaxThreads(maxThreads)

	logger.Debug("System resources adjusted", zap.Int("maxThreads", maxThreads))
	return nil
}
