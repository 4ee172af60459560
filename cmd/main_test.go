package main

import (
	"io"
	"testing"
	"time"

	"writebench/benchmark"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsDefaults(t *testing.T) {
	cfg, opts, err := parseFlags(nil, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "oci://bucket/volume", cfg.Root)
	assert.Equal(t, int64(1_000_000_000), cfg.FileSize)
	assert.Equal(t, int64(128*1024*1024), cfg.BlockSize)
	assert.Equal(t, 10240, cfg.BufferSize)
	assert.Equal(t, int64(0), cfg.ThrottleRate)
	assert.Equal(t, 3, cfg.Replication)
	assert.Equal(t, benchmark.DurabilityNone, cfg.Durability)
	assert.Equal(t, 10, cfg.Workers)
	assert.Equal(t, "~/.oci/config", opts.storage.OCIConfigFile)
	assert.False(t, opts.quiet)
}

func TestParseFlagsShortAndLongNames(t *testing.T) {
	cfg, _, err := parseFlags([]string{
		"-o", "file:///tmp/wtb",
		"-s", "0.5",
		"--block", "64",
		"-i", "4096",
		"-th", "1048576",
		"--replication", "1",
		"--sync",
		"--threads", "4",
		"--duration", "30",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "file:///tmp/wtb", cfg.Root)
	assert.Equal(t, int64(500_000_000), cfg.FileSize)
	assert.Equal(t, int64(64*1024*1024), cfg.BlockSize)
	assert.Equal(t, 4096, cfg.BufferSize)
	assert.Equal(t, int64(1048576), cfg.ThrottleRate)
	assert.Equal(t, 1, cfg.Replication)
	assert.Equal(t, benchmark.DurabilitySync, cfg.Durability)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.Duration)
}

func TestParseFlagsConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"sync and flush", []string{"--sync", "--flush"}},
		{"malformed root", []string{"-o", "bucket/volume"}},
		{"unsupported scheme", []string{"-o", "o3fs://bucket1.vol1"}},
		{"zero buffer", []string{"-i", "0"}},
		{"negative size", []string{"-s", "-1"}},
		{"zero workers", []string{"-t", "0"}},
		{"size overflows", []string{"-s", "9.223372036854775807"}},
		{"zero block", []string{"-b", "0"}},
		{"negative block", []string{"-b", "-17592186044415"}},
		{"block overflows", []string{"-b", "17592186044416"}},
		{"stray argument", []string{"extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseFlags(tt.args, io.Discard)
			assert.ErrorIs(t, err, benchmark.ErrInvalidConfig)
		})
	}
}

func TestRunExitCodes(t *testing.T) {
	assert.Equal(t, exitConfigError, run([]string{"--sync", "--flush"}))

	dir := t.TempDir()
	args := []string{"-o", "file://" + dir, "-s", "0.000001", "-t", "2", "-p", "run",
		"--log-dir", t.TempDir(), "--quiet"}
	assert.Equal(t, 0, run(args))
	// Same prefix again: every target exists.
	assert.Equal(t, exitFailure, run(args))
}
