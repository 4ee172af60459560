// Package logging builds the zap logger used by a benchmark run: a console
// core on stderr and a JSON core in a timestamped log file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFileName returns the per-run log file name for the given start time.
func LogFileName(t time.Time) string {
	return fmt.Sprintf("write_logs_%s.txt", t.Format("20060102_150405"))
}

// New returns a logger writing Info and above (Debug with debug set) to
// stderr and everything to a log file under dir. The returned function
// flushes and closes the file.
func New(dir string, debug bool) (*zap.Logger, string, func(), error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, "", nil, fmt.Errorf("create log directory: %w", err)
	}
	logPath := filepath.Join(dir, LogFileName(time.Now()))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("create log file: %w", err)
	}

	consoleLevel := zapcore.InfoLevel
	if debug {
		consoleLevel = zapcore.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), consoleLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(logFile), zapcore.DebugLevel),
	)
	logger := zap.New(core, zap.AddCaller())

	closeFn := func() {
		_ = logger.Sync()
		logFile.Close()
	}
	return logger, logPath, closeFn, nil
}
