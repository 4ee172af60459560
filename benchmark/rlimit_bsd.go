//go:build unix && !linux

package benchmark

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// SetMaxResources raises the open file limit to its hard maximum.
func SetMaxResources(logger *zap.Logger) error {
	rLimit := unix.Rlimit{}
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return fmt.Errorf("unable to get rlimit: %w", err)
	}
	rLimit.Cur = rLimit.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return fmt.Errorf("unable to set open file limit: %w", err)
	}
	logger.Debug("System resources adjusted", zap.Uint64("openFiles", rLimit.Cur))
	return nil
}
