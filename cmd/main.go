package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"writebench/benchmark"
	"writebench/config"
	"writebench/logging"
	"writebench/progress"
	"writebench/report"
	"writebench/storage"

	"go.uber.org/zap"
)

const (
	exitFailure     = 1
	exitConfigError = 2
)

// cliOptions holds the settings that are not part of the benchmark config.
type cliOptions struct {
	storage storage.Options
	logDir  string
	debug   bool
	quiet   bool
}

// parseFlags turns command-line arguments into an immutable benchmark config.
func parseFlags(args []string, output io.Writer) (benchmark.BenchmarkConfig, cliOptions, error) {
	fs := flag.NewFlagSet("writebench", flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		cfg       benchmark.BenchmarkConfig
		opts      cliOptions
		sizeGB    float64
		blockMB   int64
		throttle  int64
		sync      bool
		flush     bool
		durationS int
	)

	fs.StringVar(&cfg.Root, "o", "oci://bucket/volume", "Target root path (file:///dir, oci://bucket/volume, s3://bucket/volume)")
	fs.Float64Var(&sizeGB, "s", 1, "Size of each generated file (in GB)")
	fs.Float64Var(&sizeGB, "size", 1, "Size of each generated file (in GB)")
	fs.Int64Var(&blockMB, "b", 128, "Block size (in MB)")
	fs.Int64Var(&blockMB, "block", 128, "Block size (in MB)")
	fs.IntVar(&cfg.BufferSize, "i", 10240, "Size of the write buffer (in bytes)")
	fs.IntVar(&cfg.BufferSize, "buffer", 10240, "Size of the write buffer (in bytes)")
	fs.Int64Var(&throttle, "th", 0, "Target write rate per worker in bytes/s (0 means unthrottled)")
	fs.Int64Var(&throttle, "throttle", 0, "Target write rate per worker in bytes/s (0 means unthrottled)")
	fs.IntVar(&cfg.Replication, "re", 3, "Replication factor")
	fs.IntVar(&cfg.Replication, "replication", 3, "Replication factor")
	fs.BoolVar(&sync, "sync", false, "Issue hsync after every write (cannot be used with --flush)")
	fs.BoolVar(&flush, "flush", false, "Issue hflush after every write (cannot be used with --sync)")
	fs.IntVar(&cfg.Workers, "t", 10, "Number of concurrent workers, one file each")
	fs.IntVar(&cfg.Workers, "threads", 10, "Number of concurrent workers, one file each")
	fs.StringVar(&cfg.Prefix, "p", "", "Object name prefix (random when empty)")
	fs.StringVar(&cfg.Prefix, "prefix", "", "Object name prefix (random when empty)")
	fs.IntVar(&cfg.RateLimit, "rate-limit", 0, "Max file creations per second (0 means no limit)")
	fs.IntVar(&durationS, "duration", 0, "Abort the run after this many seconds (0 means no limit)")
	fs.BoolVar(&cfg.Verify, "verify", false, "Check the size of every written file after the run")
	fs.BoolVar(&cfg.Cleanup, "cleanup", false, "Delete the written files after the run")

	fs.StringVar(&opts.storage.OCIConfigFile, "config-file", config.DefaultOCIConfigFile, "Path to OCI config file")
	fs.StringVar(&opts.storage.Namespace, "namespace", "", "OCI namespace (fetched when empty)")
	fs.StringVar(&opts.storage.Host, "host", "", "OCI object storage host override")
	fs.StringVar(&opts.storage.Endpoint, "endpoint", "", "S3 compatible endpoint URL")
	fs.StringVar(&opts.storage.Region, "region", "", "S3 region")
	fs.StringVar(&opts.storage.AccessKey, "access-key", "", "S3 access key (default credential chain when empty)")
	fs.StringVar(&opts.storage.SecretKey, "secret-key", "", "S3 secret key")

	fs.StringVar(&opts.logDir, "log-dir", ".", "Directory for the run log file")
	fs.BoolVar(&opts.debug, "debug", false, "Log debug messages to the console")
	fs.BoolVar(&opts.quiet, "quiet", false, "Hide the progress bar")

	if err := fs.Parse(args); err != nil {
		return cfg, opts, err
	}
	if fs.NArg() > 0 {
		return cfg, opts, fmt.Errorf("%w: unexpected arguments %v", benchmark.ErrInvalidConfig, fs.Args())
	}

	if sizeGB < 0 || math.IsNaN(sizeGB) || sizeGB*1e9 >= math.MaxInt64 {
		return cfg, opts, fmt.Errorf("%w: invalid size %v GB", benchmark.ErrInvalidConfig, sizeGB)
	}
	cfg.FileSize = int64(math.Round(sizeGB * 1e9))
	if blockMB <= 0 || blockMB > math.MaxInt64/(1024*1024) {
		return cfg, opts, fmt.Errorf("%w: invalid block size %d MB", benchmark.ErrInvalidConfig, blockMB)
	}
	cfg.BlockSize = blockMB * 1024 * 1024
	cfg.ThrottleRate = throttle
	cfg.Duration = time.Duration(durationS) * time.Second

	durability, err := benchmark.DurabilityFromFlags(sync, flush)
	if err != nil {
		return cfg, opts, err
	}
	cfg.Durability = durability

	return cfg, opts, cfg.Validate()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitConfigError
	}

	logger, logFileName, closeLog, err := logging.New(opts.logDir, opts.debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		return exitFailure
	}
	defer closeLog()

	// Set system resource limits for high-performance testing
	if err := benchmark.SetMaxResources(logger); err != nil {
		logger.Warn("Error setting resources", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// A second interrupt kills the process during verify and cleanup.
		<-ctx.Done()
		stop()
	}()

	runOpts := benchmark.RunOptions{Logger: logger}
	var bar *progress.ProgressBar
	if !opts.quiet {
		bar = progress.NewProgressBar(cfg.FileSize * int64(cfg.Workers))
		bar.SetCaption("Writing")
		runOpts.OnBytes = bar.AddBytes
	}

	open := func(ctx context.Context, root string) (storage.Session, error) {
		return storage.Open(ctx, root, opts.storage, logger)
	}

	summary, err := benchmark.RunWriteBenchmark(ctx, cfg, open, runOpts)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		logger.Error("Write benchmark failed", zap.Error(err))
		if errors.Is(err, benchmark.ErrInvalidConfig) {
			return exitConfigError
		}
		return exitFailure
	}

	report.DisplayResults(os.Stdout, summary, logFileName)
	if !summary.OK() {
		return exitFailure
	}
	return 0
}
