package benchmark

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"writebench/storage"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// postRunTimeout bounds each verify and cleanup request.
var postRunTimeout = 30 * time.Second

// Opener connects the storage session of a run.
type Opener func(ctx context.Context, root string) (storage.Session, error)

// RunOptions carries the collaborators of a run that are not configuration.
type RunOptions struct {
	Logger *zap.Logger
	// OnBytes, when set, receives the size of every chunk written by any
	// worker. It is called concurrently.
	OnBytes func(n int64)
}

// Summary aggregates the results of a run.
type Summary struct {
	Workers      int
	Succeeded    int
	Failed       int
	Throttled    int   // failures the backend rejected with 429/503
	BytesWritten int64 // bytes in files that reached DONE
	BytesSent    int64 // bytes accepted by sinks, including failed files
	Duration     time.Duration
	FirstError   error
	VerifyFailed int
	Deleted      int
	Results      []TaskResult // ordered by worker index

	firstErrorIndex int
}

// OK reports whether every task finished and every verified file matched.
func (s *Summary) OK() bool {
	return s.Failed == 0 && s.VerifyFailed == 0
}

// RunWriteBenchmark creates cfg.Workers files of cfg.FileSize bytes in
// parallel through one shared session. Configuration errors and a session
// that cannot be opened are returned as errors; task failures are reported
// in the summary. The session is closed only after every task has finished.
func RunWriteBenchmark(ctx context.Context, cfg BenchmarkConfig, open Opener, opts RunOptions) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	prefix := cfg.Prefix
	if prefix == "" {
		name, err := GenerateRandomName(5)
		if err != nil {
			return nil, fmt.Errorf("generate prefix: %w", err)
		}
		prefix = name
	}

	logger.Info("Write benchmark configuration",
		zap.String("root", cfg.Root),
		zap.String("prefix", prefix),
		zap.Int("numFiles", cfg.Workers),
		zap.Int("threads", cfg.Workers),
		zap.Int64("fileSize", cfg.FileSize),
		zap.Int64("blockSize", cfg.BlockSize),
		zap.Int("bufferSize", cfg.BufferSize),
		zap.Int("replication", cfg.Replication),
		zap.Int64("throttle", cfg.ThrottleRate),
		zap.Stringer("durability", cfg.Durability))

	var cancel context.CancelFunc
	if cfg.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	session, err := open(ctx, cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("open storage session: %w", err)
	}

	throttle := NewThrottle(cfg.BufferSize, cfg.ThrottleRate)
	if throttle.Enabled() {
		logger.Info("Throttling enabled", zap.Duration("expectedPerChunk", throttle.Expected()))
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
		logger.Info("Rate limiter", zap.Int("filesPerSecond", cfg.RateLimit))
	}

	var bytesSent atomic.Int64
	w := &worker{
		session:  session,
		cfg:      cfg,
		throttle: throttle,
		logger:   logger,
		onChunk: func(n int64) {
			bytesSent.Add(n)
			if opts.OnBytes != nil {
				opts.OnBytes(n)
			}
		},
	}

	results := make(chan TaskResult, cfg.Workers)
	var wg sync.WaitGroup
	var nextIndex int64

	startTime := time.Now()
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				index := int(atomic.AddInt64(&nextIndex, 1) - 1)
				if index >= cfg.Workers {
					return
				}
				item := newWorkItem(cfg.Root, prefix, index)

				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						logger.Error("Rate limiter error", zap.String("path", item.Path), zap.Error(err))
						results <- TaskResult{Item: item, State: StateFailed, Reached: StateStart, Err: err}
						continue
					}
				}
				results <- w.run(ctx, item)
			}
		}()
	}

	// Every task must be terminal before the shared session goes away.
	wg.Wait()
	close(results)

	summary := &Summary{Workers: cfg.Workers, Duration: time.Since(startTime)}
	for res := range results {
		summary.add(res)
	}
	summary.BytesSent = bytesSent.Load()
	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Item.Index < summary.Results[j].Item.Index
	})

	// Verification and cleanup run even when the run was cancelled.
	postCtx := context.WithoutCancel(ctx)
	if cfg.Verify {
		verifyResults(postCtx, session, cfg.FileSize, summary, logger)
	}
	if cfg.Cleanup {
		cleanupResults(postCtx, session, summary, logger)
	}

	if err := session.Close(); err != nil {
		logger.Warn("Closing storage session failed", zap.Error(err))
	}

	logger.Info("Write benchmark finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int64("bytesWritten", summary.BytesWritten),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (s *Summary) add(res TaskResult) {
	s.Results = append(s.Results, res)
	if res.State == StateDone {
		s.Succeeded++
		s.BytesWritten += res.Bytes
		return
	}
	s.Failed++
	if storage.IsThrottled(res.Err) {
		s.Throttled++
	}
	// Lowest worker index wins, so FirstError does not depend on completion order.
	if s.FirstError == nil || res.Item.Index < s.firstErrorIndex {
		s.FirstError = res.Err
		s.firstErrorIndex = res.Item.Index
	}
}

func verifyResults(ctx context.Context, session storage.Session, want int64, summary *Summary, logger *zap.Logger) {
	for _, res := range summary.Results {
		if res.State != StateDone {
			continue
		}
		opCtx, cancel := context.WithTimeout(ctx, postRunTimeout)
		size, err := session.Size(opCtx, res.Item.Name)
		cancel()
		if err != nil {
			summary.VerifyFailed++
			logger.Error("Verify failed", zap.String("path", res.Item.Path), zap.Error(err))
			continue
		}
		if size != want {
			summary.VerifyFailed++
			logger.Error("Verify size mismatch",
				zap.String("path", res.Item.Path),
				zap.Int64("size", size),
				zap.Int64("expected", want))
		}
	}
}

func cleanupResults(ctx context.Context, session storage.Session, summary *Summary, logger *zap.Logger) {
	for _, res := range summary.Results {
		if res.State != StateDone {
			continue
		}
		opCtx, cancel := context.WithTimeout(ctx, postRunTimeout)
		err := session.Delete(opCtx, res.Item.Name)
		cancel()
		if err != nil {
			logger.Warn("Cleanup failed", zap.String("path", res.Item.Path), zap.Error(err))
			continue
		}
		summary.Deleted++
	}
}
