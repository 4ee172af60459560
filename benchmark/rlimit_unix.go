//go:build linux
// +build linux

package benchmark

import (
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// SetMaxResources raises the open file limit to its hard maximum and lets the
// Go runtime use most of the kernel thread limit. Each worker blocked in a
// write or fsync holds an OS thread.
func SetMaxResources(logger *zap.Logger) error {
	const threadLimit = 10000
	rLimit := unix.Rlimit{}

	err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		return fmt.Errorf("unable to get rlimit: %w", err)
	}

	rLimit.Cur = rLimit.Max
	err = unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		return fmt.Errorf("unable to set open file limit: %w", err)
	}

	threads, err := readLinuxMaxThreads()
	if err != nil {
		return fmt.Errorf("unable to read max threads: %w", err)
	}

	// 90% of the system's max thread limit
	maxThreads := (int(threads) * 90) / 100
	if maxThreads > threadLimit {
		debug.SetMaxThreads(maxThreads)
	}

	logger.Debug("System resources adjusted",
		zap.Uint64("openFiles", rLimit.Cur),
		zap.Int("maxThreads", maxThreads))
	return nil
}

// readLinuxMaxThreads reads the max threads from /proc/sys/kernel/threads-max on Linux.
func readLinuxMaxThreads() (uint32, error) {
	data, err := os.ReadFile("/proc/sys/kernel/threads-max")
	if err != nil {
		return 0, fmt.Errorf("unable to read /proc/sys/kernel/threads-max: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	threads, err := strconv.ParseUint(trimmed, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unable to parse max threads value: %w", err)
	}
	return uint32(threads), nil
}
