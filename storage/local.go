package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// LocalSession implements Session on a local or mounted filesystem directory.
type LocalSession struct {
	dir    string
	logger *zap.Logger
}

// NewLocalSession creates the root directory if needed and returns a session on it.
func NewLocalSession(dir string, logger *zap.Logger) (*LocalSession, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create root directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalSession{dir: dir, logger: logger}, nil
}

func (s *LocalSession) path(name string) string {
	return filepath.Join(s.dir, filepath.FromSlash(name))
}

// Exists reports whether name is present under the root.
func (s *LocalSession) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", name, err)
}

// Create opens name exclusively for writing. Replication and block size have
// no meaning on a local filesystem and are only logged.
func (s *LocalSession) Create(ctx context.Context, name string, opts CreateOptions) (Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath := s.path(name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
		return nil, fmt.Errorf("create parent directory: %w", err)
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create %s: %w", name, ErrExist)
		}
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	s.logger.Debug("LocalSession.Create",
		zap.String("path", fullPath),
		zap.Int("bufferSize", opts.BufferSize),
		zap.Int("replication", opts.Replication),
		zap.Int64("blockSize", opts.BlockSize))

	return &localSink{
		file:   f,
		writer: bufio.NewWriterSize(f, opts.BufferSize),
	}, nil
}

// Size returns the size of name in bytes.
func (s *LocalSession) Size(ctx context.Context, name string) (int64, error) {
	info, err := os.Stat(s.path(name))
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", name, err)
	}
	return info.Size(), nil
}

// Delete removes name.
func (s *LocalSession) Delete(ctx context.Context, name string) error {
	if err := os.Remove(s.path(name)); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Close is a no-op for the local backend.
func (s *LocalSession) Close() error {
	return nil
}

type localSink struct {
	file   *os.File
	writer *bufio.Writer
	closed bool
}

func (s *localSink) Write(p []byte) (int, error) {
	return s.writer.Write(p)
}

// Hflush hands buffered bytes to the operating system.
func (s *localSink) Hflush() error {
	return s.writer.Flush()
}

// Hsync hands buffered bytes to the operating system and fsyncs the file.
func (s *localSink) Hsync() error {
	if err := s.writer.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *localSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	flushErr := s.writer.Flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Abort closes the file and removes it; the file was created exclusively by
// this sink, so nothing else owns it.
func (s *localSink) Abort() error {
	if !s.closed {
		s.closed = true
		s.file.Close()
	}
	if err := os.Remove(s.file.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
