// Package storage provides the storage client used by the write benchmark:
// a shared Session per run and a Sink per created file. Backends are picked
// from the scheme of the root URI (file, oci, s3).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/oracle/oci-go-sdk/v65/common"
	"go.uber.org/zap"
)

var (
	// ErrExist is returned when a target object already occupies a path.
	ErrExist = errors.New("target already exists")
	// ErrMalformedRoot is returned for root URIs that cannot be parsed.
	ErrMalformedRoot = errors.New("malformed root path")
	// ErrUnsupportedScheme is returned for root URIs with an unknown scheme.
	ErrUnsupportedScheme = errors.New("unsupported root scheme")
)

// CreateOptions carries the per-file parameters handed to Session.Create.
type CreateOptions struct {
	BufferSize  int   // write buffer size in bytes
	Replication int   // replication factor requested from the backend
	BlockSize   int64 // block size in bytes
}

// Sink is an open output handle for one file. A Sink is owned by a single
// goroutine and must be released with Close or Abort.
type Sink interface {
	io.Writer
	// Hsync flushes buffered data and blocks until the backend has persisted it.
	Hsync() error
	// Hflush pushes buffered data to the backend without a durability guarantee.
	Hflush() error
	// Close commits the file.
	Close() error
	// Abort releases the handle and discards whatever was written.
	Abort() error
}

// Session is a connection to a storage root. It is safe for concurrent use
// by multiple workers. Names are keys relative to the root.
type Session interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string, opts CreateOptions) (Sink, error)
	Size(ctx context.Context, name string) (int64, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// Options holds backend specific connection settings.
type Options struct {
	// OCI object storage
	OCIConfigFile string
	Namespace     string
	Host          string

	// S3 compatible object storage
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// Open parses the root URI and connects the matching backend.
func Open(ctx context.Context, uri string, opts Options, logger *zap.Logger) (Session, error) {
	root, err := ParseRoot(uri)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		session Session
		openErr error
	)
	switch root.Scheme {
	case SchemeFile:
		session, openErr = NewLocalSession(root.Dir, logger)
	case SchemeOCI:
		session, openErr = newOCISession(ctx, root, opts, logger)
	case SchemeS3:
		session, openErr = newS3Session(ctx, root, opts, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, root.Scheme)
	}
	if openErr != nil {
		return nil, openErr
	}
	return session, nil
}

// IsThrottled reports whether the backend rejected a request because it was
// overloaded (HTTP 429 or 503).
func IsThrottled(err error) bool {
	code := statusCode(err)
	return code == 429 || code == 503
}

// statusCode extracts the HTTP status code from OCI and AWS service errors.
func statusCode(err error) int {
	if err == nil {
		return 0
	}
	var serviceErr common.ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.GetHTTPStatusCode()
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

func isNotFound(err error) bool {
	return statusCode(err) == 404
}

func isPreconditionFailed(err error) bool {
	return statusCode(err) == 412
}
