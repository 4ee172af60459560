package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const abortTimeout = 30 * time.Second

type completedPart struct {
	Number int
	ETag   string
}

// multipartObject is one object key on an object store that can be uploaded
// either in parts or with a single put. Commit and put must refuse to
// overwrite an existing object.
type multipartObject interface {
	begin(ctx context.Context) (uploadID string, err error)
	uploadPart(ctx context.Context, uploadID string, number int, part []byte) (etag string, err error)
	commit(ctx context.Context, uploadID string, parts []completedPart) error
	abort(ctx context.Context, uploadID string) error
	put(ctx context.Context, data []byte) error
}

// multipartSink buffers writes into parts of partSize bytes. Object stores
// have no way to persist a partial object, so Hflush only reports earlier
// upload failures and Hsync uploads the pending buffer once it is large
// enough to be a non-final part.
type multipartSink struct {
	ctx         context.Context
	object      multipartObject
	name        string
	partSize    int
	minPartSize int
	buf         []byte
	uploadID    string
	parts       []completedPart
	err         error
	closed      bool
	logger      *zap.Logger
}

func newMultipartSink(ctx context.Context, object multipartObject, name string, blockSize int64, minPartSize int, logger *zap.Logger) *multipartSink {
	partSize := int(blockSize)
	if partSize < minPartSize {
		partSize = minPartSize
	}
	return &multipartSink{
		ctx:         ctx,
		object:      object,
		name:        name,
		partSize:    partSize,
		minPartSize: minPartSize,
		buf:         make([]byte, 0, partSize),
		logger:      logger,
	}
}

func (s *multipartSink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, errors.New("write on closed sink")
	}
	if s.err != nil {
		return 0, s.err
	}
	written := 0
	for len(p) > 0 {
		n := s.partSize - len(s.buf)
		if n > len(p) {
			n = len(p)
		}
		s.buf = append(s.buf, p[:n]...)
		p = p[n:]
		written += n
		if len(s.buf) == s.partSize {
			if err := s.uploadBuffered(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (s *multipartSink) Hflush() error {
	return s.err
}

func (s *multipartSink) Hsync() error {
	if s.err != nil {
		return s.err
	}
	if len(s.buf) >= s.minPartSize {
		return s.uploadBuffered()
	}
	return nil
}

// Close uploads the tail and commits the object. An object that never filled
// a part is written with a single put.
func (s *multipartSink) Close() error {
	if s.closed {
		return nil
	}
	if s.err != nil {
		s.Abort()
		return s.err
	}
	s.closed = true

	if s.uploadID == "" {
		if err := s.object.put(s.ctx, s.buf); err != nil {
			return s.wrap("put", err)
		}
		return nil
	}

	if len(s.buf) > 0 {
		if err := s.uploadBuffered(); err != nil {
			s.abortUpload()
			return err
		}
	}
	if err := s.object.commit(s.ctx, s.uploadID, s.parts); err != nil {
		s.abortUpload()
		return s.wrap("commit", err)
	}
	s.logger.Debug("multipart upload committed",
		zap.String("name", s.name),
		zap.Int("parts", len(s.parts)))
	return nil
}

func (s *multipartSink) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.abortUpload()
}

func (s *multipartSink) abortUpload() error {
	if s.uploadID == "" {
		return nil
	}
	// The run context may already be cancelled; the abort must still reach
	// the backend so the upload does not linger.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), abortTimeout)
	defer cancel()
	if err := s.object.abort(ctx, s.uploadID); err != nil {
		s.logger.Warn("abort multipart upload failed",
			zap.String("name", s.name),
			zap.String("uploadID", s.uploadID),
			zap.Error(err))
		return s.wrap("abort", err)
	}
	return nil
}

func (s *multipartSink) uploadBuffered() error {
	if s.uploadID == "" {
		id, err := s.object.begin(s.ctx)
		if err != nil {
			s.err = s.wrap("begin upload", err)
			return s.err
		}
		s.uploadID = id
	}
	number := len(s.parts) + 1
	etag, err := s.object.uploadPart(s.ctx, s.uploadID, number, s.buf)
	if err != nil {
		s.err = s.wrap(fmt.Sprintf("upload part %d", number), err)
		return s.err
	}
	s.parts = append(s.parts, completedPart{Number: number, ETag: etag})
	s.buf = s.buf[:0]
	return nil
}

func (s *multipartSink) wrap(op string, err error) error {
	if isPreconditionFailed(err) {
		return fmt.Errorf("%s %s: %w", op, s.name, ErrExist)
	}
	return fmt.Errorf("%s %s: %w", op, s.name, err)
}
