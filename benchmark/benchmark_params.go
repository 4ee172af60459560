package benchmark

import (
	"errors"
	"fmt"
	"time"

	"writebench/storage"
)

var (
	// ErrInvalidConfig marks configuration errors detected before any work starts.
	ErrInvalidConfig = errors.New("invalid benchmark configuration")
	// ErrConflictingDurability is returned when both sync and flush are requested.
	ErrConflictingDurability = fmt.Errorf("%w: sync and flush cannot both be enabled", ErrInvalidConfig)
	// ErrTargetExists is returned by a task whose target path is already occupied.
	ErrTargetExists = storage.ErrExist
)

// Durability selects what the write loop issues after every chunk.
type Durability int

const (
	DurabilityNone Durability = iota
	DurabilitySync
	DurabilityFlush
)

func (d Durability) String() string {
	switch d {
	case DurabilityNone:
		return "none"
	case DurabilitySync:
		return "hsync"
	case DurabilityFlush:
		return "hflush"
	default:
		return fmt.Sprintf("Durability(%d)", int(d))
	}
}

// DurabilityFromFlags maps the --sync and --flush switches to a mode.
func DurabilityFromFlags(sync, flush bool) (Durability, error) {
	switch {
	case sync && flush:
		return DurabilityNone, ErrConflictingDurability
	case sync:
		return DurabilitySync, nil
	case flush:
		return DurabilityFlush, nil
	default:
		return DurabilityNone, nil
	}
}

// BenchmarkConfig holds the parameters of a write benchmark run. It is built
// once at startup and never modified afterwards.
type BenchmarkConfig struct {
	Root         string        // target root URI, e.g. oci://bucket/volume
	Prefix       string        // object name prefix, random per run when empty
	FileSize     int64         // bytes per file
	BlockSize    int64         // block size in bytes
	BufferSize   int           // bytes per write chunk
	Replication  int           // replication factor
	ThrottleRate int64         // target bytes/sec per worker, 0 means unthrottled
	Durability   Durability    // what to issue after every chunk
	Workers      int           // worker pool size and number of files
	RateLimit    int           // max file creations per second, 0 means no limit
	Duration     time.Duration // optional run timeout
	Verify       bool          // check file sizes after the run
	Cleanup      bool          // delete written files after the run
}

// Validate reports configuration errors. All returned errors wrap ErrInvalidConfig.
func (c BenchmarkConfig) Validate() error {
	if _, err := storage.ParseRoot(c.Root); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch {
	case c.Durability < DurabilityNone || c.Durability > DurabilityFlush:
		return fmt.Errorf("%w: unknown durability mode %d", ErrInvalidConfig, int(c.Durability))
	case c.Workers <= 0:
		return fmt.Errorf("%w: worker count must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.BufferSize <= 0:
		return fmt.Errorf("%w: buffer size must be positive, got %d", ErrInvalidConfig, c.BufferSize)
	case c.FileSize < 0:
		return fmt.Errorf("%w: file size must not be negative, got %d", ErrInvalidConfig, c.FileSize)
	case c.BlockSize <= 0:
		return fmt.Errorf("%w: block size must be positive, got %d", ErrInvalidConfig, c.BlockSize)
	case c.Replication <= 0:
		return fmt.Errorf("%w: replication factor must be positive, got %d", ErrInvalidConfig, c.Replication)
	case c.ThrottleRate < 0:
		return fmt.Errorf("%w: throttle rate must not be negative, got %d", ErrInvalidConfig, c.ThrottleRate)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: rate limit must not be negative, got %d", ErrInvalidConfig, c.RateLimit)
	case c.Duration < 0:
		return fmt.Errorf("%w: duration must not be negative, got %s", ErrInvalidConfig, c.Duration)
	}
	return nil
}
