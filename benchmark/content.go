package benchmark

import (
	"context"
	"fmt"
	"io"
	"time"

	"writebench/storage"
)

// WriteStats describes a finished write loop.
type WriteStats struct {
	Bytes  int64
	Chunks int64
}

// ContentGenerator writes a file of a fixed size into a sink in chunks of
// the buffer size, issuing the configured durability call after every chunk.
type ContentGenerator struct {
	totalSize  int64
	bufferSize int
	durability Durability
	throttle   Throttle
	onChunk    func(n int64)
}

// NewContentGenerator returns a generator for files of totalSize bytes.
// onChunk, when set, is called with the size of every chunk that reached the sink.
func NewContentGenerator(totalSize int64, bufferSize int, durability Durability, throttle Throttle, onChunk func(n int64)) *ContentGenerator {
	return &ContentGenerator{
		totalSize:  totalSize,
		bufferSize: bufferSize,
		durability: durability,
		throttle:   throttle,
		onChunk:    onChunk,
	}
}

// Chunks returns ceil(totalSize / bufferSize).
func (g *ContentGenerator) Chunks() int64 {
	return (g.totalSize + int64(g.bufferSize) - 1) / int64(g.bufferSize)
}

// Write writes exactly totalSize bytes into sink. The last chunk is cut to
// the remaining byte count. The first failing write, durability call,
// throttle sleep or cancellation ends the loop and is returned; nothing is retried.
func (g *ContentGenerator) Write(ctx context.Context, sink storage.Sink) (WriteStats, error) {
	buf := GetBuffer(g.bufferSize)
	defer PutBuffer(buf)
	fill(buf)

	var stats WriteStats
	for remaining := g.totalSize; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		chunk := buf
		if remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}

		var start time.Time
		if g.throttle.Enabled() {
			start = time.Now()
		}

		n, err := sink.Write(chunk)
		stats.Bytes += int64(n)
		remaining -= int64(n)
		if err != nil {
			return stats, fmt.Errorf("write chunk %d: %w", stats.Chunks, err)
		}
		if n != len(chunk) {
			return stats, fmt.Errorf("write chunk %d: %w", stats.Chunks, io.ErrShortWrite)
		}

		switch g.durability {
		case DurabilitySync:
			err = sink.Hsync()
		case DurabilityFlush:
			err = sink.Hflush()
		}
		if err != nil {
			return stats, fmt.Errorf("%s after chunk %d: %w", g.durability, stats.Chunks, err)
		}
		stats.Chunks++
		if g.onChunk != nil {
			g.onChunk(int64(n))
		}

		if g.throttle.Enabled() {
			if err := g.throttle.Enforce(ctx, time.Since(start)); err != nil {
				return stats, fmt.Errorf("throttle after chunk %d: %w", stats.Chunks-1, err)
			}
		}
	}
	return stats, nil
}

// fill writes a repeating A-Z pattern into buf.
func fill(buf []byte) {
	for i := range buf {
		buf[i] = byte('A' + i%26)
	}
}
