package benchmark

import (
	"context"
	"fmt"
	"time"

	"writebench/storage"

	"go.uber.org/zap"
)

// TaskState is a step of the per-file protocol.
type TaskState int

const (
	StateStart TaskState = iota
	StatePathResolved
	StateExistenceChecked
	StateFileCreated
	StateWriting
	StateThrottling
	StateDone
	StateFailed
)

var taskStateNames = [...]string{
	StateStart:            "START",
	StatePathResolved:     "PATH_RESOLVED",
	StateExistenceChecked: "EXISTENCE_CHECKED",
	StateFileCreated:      "FILE_CREATED",
	StateWriting:          "WRITING",
	StateThrottling:       "THROTTLING",
	StateDone:             "DONE",
	StateFailed:           "FAILED",
}

func (s TaskState) String() string {
	if s >= 0 && int(s) < len(taskStateNames) {
		return taskStateNames[s]
	}
	return fmt.Sprintf("TaskState(%d)", int(s))
}

// WorkItem is one file to create.
type WorkItem struct {
	Index int    // worker ordinal
	Name  string // key relative to the root
	Path  string // root joined with Name
}

// TaskResult is the outcome of one work item.
type TaskResult struct {
	Item    WorkItem
	State   TaskState // StateDone or StateFailed
	Reached TaskState // last step completed
	Bytes   int64
	Chunks  int64
	Elapsed time.Duration
	Err     error
}

type worker struct {
	session  storage.Session
	cfg      BenchmarkConfig
	throttle Throttle
	logger   *zap.Logger
	onChunk  func(n int64)
}

// newWorkItem resolves the target of task index.
func newWorkItem(root, prefix string, index int) WorkItem {
	name := ObjectName(prefix, index)
	return WorkItem{
		Index: index,
		Name:  name,
		Path:  storage.Join(root, name),
	}
}

// run creates one file. Failures are logged and reported in the result;
// run never panics on storage errors and never affects other workers.
func (w *worker) run(ctx context.Context, item WorkItem) TaskResult {
	start := time.Now()
	result := TaskResult{Item: item, Reached: StatePathResolved}
	logger := w.logger.With(zap.Int("worker", item.Index), zap.String("path", item.Path))

	fail := func(err error) TaskResult {
		result.State = StateFailed
		result.Err = err
		result.Elapsed = time.Since(start)
		logger.Error("Task failed",
			zap.Stringer("reached", result.Reached),
			zap.Int64("bytes", result.Bytes),
			zap.Error(err))
		return result
	}

	exists, err := w.session.Exists(ctx, item.Name)
	if err != nil {
		return fail(fmt.Errorf("check %s: %w", item.Path, err))
	}
	if exists {
		return fail(fmt.Errorf("%s: %w", item.Path, ErrTargetExists))
	}
	result.Reached = StateExistenceChecked

	sink, err := w.session.Create(ctx, item.Name, storage.CreateOptions{
		BufferSize:  w.cfg.BufferSize,
		Replication: w.cfg.Replication,
		BlockSize:   w.cfg.BlockSize,
	})
	if err != nil {
		return fail(fmt.Errorf("create %s: %w", item.Path, err))
	}
	result.Reached = StateFileCreated
	logger.Debug("File created")

	gen := NewContentGenerator(w.cfg.FileSize, w.cfg.BufferSize, w.cfg.Durability, w.throttle, w.onChunk)
	result.Reached = StateWriting
	stats, err := gen.Write(ctx, sink)
	result.Bytes, result.Chunks = stats.Bytes, stats.Chunks
	if err != nil {
		if abortErr := sink.Abort(); abortErr != nil {
			logger.Warn("Abort failed", zap.Error(abortErr))
		}
		return fail(fmt.Errorf("write %s: %w", item.Path, err))
	}
	if w.throttle.Enabled() {
		result.Reached = StateThrottling
	}

	if err := sink.Close(); err != nil {
		if abortErr := sink.Abort(); abortErr != nil {
			logger.Warn("Abort failed", zap.Error(abortErr))
		}
		return fail(fmt.Errorf("close %s: %w", item.Path, err))
	}

	result.Reached = StateDone
	result.State = StateDone
	result.Elapsed = time.Since(start)
	logger.Debug("Task done",
		zap.Int64("bytes", stats.Bytes),
		zap.Int64("chunks", stats.Chunks),
		zap.Duration("elapsed", result.Elapsed))
	return result
}
