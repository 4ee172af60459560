package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"writebench/config"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"
	"go.uber.org/zap"
)

// OCI rejects non-final multipart parts smaller than this.
const ociMinPartSize = 10 * 1024 * 1024

type nopCloser struct {
	io.Reader
}

func (nopCloser) Close() error { return nil }

type ociSession struct {
	client     objectstorage.ObjectStorageClient
	httpClient *http.Client
	namespace  string
	root       Root
	logger     *zap.Logger
}

func newOCISession(ctx context.Context, root Root, opts Options, logger *zap.Logger) (*ociSession, error) {
	provider, err := config.LoadOCIConfig(opts.OCIConfigFile)
	if err != nil {
		return nil, err
	}

	client, err := objectstorage.NewObjectStorageClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	httpClient, err := newHTTPClient()
	if err != nil {
		return nil, err
	}
	client.HTTPClient = httpClient

	if opts.Host != "" {
		logger.Info("Using custom host", zap.String("host", opts.Host))
		client.Host = opts.Host
	}

	namespace := opts.Namespace
	if namespace == "" {
		namespaceResp, err := client.GetNamespace(ctx, objectstorage.GetNamespaceRequest{})
		if err != nil {
			return nil, fmt.Errorf("get namespace: %w", err)
		}
		namespace = *namespaceResp.Value
		logger.Info("Fetched namespace", zap.String("namespace", namespace))
	} else {
		logger.Info("Using provided namespace", zap.String("namespace", namespace))
	}

	return &ociSession{
		client:     client,
		httpClient: httpClient,
		namespace:  namespace,
		root:       root,
		logger:     logger,
	}, nil
}

func (s *ociSession) head(ctx context.Context, name string) (objectstorage.HeadObjectResponse, error) {
	return s.client.HeadObject(ctx, objectstorage.HeadObjectRequest{
		NamespaceName: common.String(s.namespace),
		BucketName:    common.String(s.root.Bucket),
		ObjectName:    common.String(s.root.Key(name)),
	})
}

func (s *ociSession) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.head(ctx, name)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head %s: %w", name, err)
}

func (s *ociSession) Size(ctx context.Context, name string) (int64, error) {
	resp, err := s.head(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("head %s: %w", name, err)
	}
	if resp.ContentLength == nil {
		return 0, fmt.Errorf("head %s: missing content length", name)
	}
	return *resp.ContentLength, nil
}

func (s *ociSession) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, objectstorage.DeleteObjectRequest{
		NamespaceName: common.String(s.namespace),
		BucketName:    common.String(s.root.Bucket),
		ObjectName:    common.String(s.root.Key(name)),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Create starts a new object. Replication is managed by the service and the
// block size becomes the multipart part size.
func (s *ociSession) Create(ctx context.Context, name string, opts CreateOptions) (Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logger.Debug("ociSession.Create",
		zap.String("bucket", s.root.Bucket),
		zap.String("object", s.root.Key(name)),
		zap.Int("replication", opts.Replication),
		zap.Int64("blockSize", opts.BlockSize))

	object := &ociObject{session: s, key: s.root.Key(name)}
	return newMultipartSink(ctx, object, name, opts.BlockSize, ociMinPartSize, s.logger), nil
}

func (s *ociSession) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

type ociObject struct {
	session *ociSession
	key     string
}

func (o *ociObject) begin(ctx context.Context) (string, error) {
	resp, err := o.session.client.CreateMultipartUpload(ctx, objectstorage.CreateMultipartUploadRequest{
		NamespaceName: common.String(o.session.namespace),
		BucketName:    common.String(o.session.root.Bucket),
		CreateMultipartUploadDetails: objectstorage.CreateMultipartUploadDetails{
			Object: common.String(o.key),
		},
	})
	if err != nil {
		return "", err
	}
	return *resp.MultipartUpload.UploadId, nil
}

func (o *ociObject) uploadPart(ctx context.Context, uploadID string, number int, part []byte) (string, error) {
	resp, err := o.session.client.UploadPart(ctx, objectstorage.UploadPartRequest{
		NamespaceName:  common.String(o.session.namespace),
		BucketName:     common.String(o.session.root.Bucket),
		ObjectName:     common.String(o.key),
		UploadId:       common.String(uploadID),
		UploadPartNum:  common.Int(number),
		ContentLength:  common.Int64(int64(len(part))),
		UploadPartBody: nopCloser{bytes.NewReader(part)},
	})
	if err != nil {
		return "", err
	}
	return *resp.ETag, nil
}

func (o *ociObject) commit(ctx context.Context, uploadID string, parts []completedPart) error {
	details := make([]objectstorage.CommitMultipartUploadPartDetails, 0, len(parts))
	for _, p := range parts {
		details = append(details, objectstorage.CommitMultipartUploadPartDetails{
			PartNum: common.Int(p.Number),
			Etag:    common.String(p.ETag),
		})
	}
	_, err := o.session.client.CommitMultipartUpload(ctx, objectstorage.CommitMultipartUploadRequest{
		NamespaceName: common.String(o.session.namespace),
		BucketName:    common.String(o.session.root.Bucket),
		ObjectName:    common.String(o.key),
		UploadId:      common.String(uploadID),
		CommitMultipartUploadDetails: objectstorage.CommitMultipartUploadDetails{
			PartsToCommit: details,
		},
		IfNoneMatch: common.String("*"),
	})
	return err
}

func (o *ociObject) abort(ctx context.Context, uploadID string) error {
	_, err := o.session.client.AbortMultipartUpload(ctx, objectstorage.AbortMultipartUploadRequest{
		NamespaceName: common.String(o.session.namespace),
		BucketName:    common.String(o.session.root.Bucket),
		ObjectName:    common.String(o.key),
		UploadId:      common.String(uploadID),
	})
	return err
}

func (o *ociObject) put(ctx context.Context, data []byte) error {
	_, err := o.session.client.PutObject(ctx, objectstorage.PutObjectRequest{
		NamespaceName: common.String(o.session.namespace),
		BucketName:    common.String(o.session.root.Bucket),
		ObjectName:    common.String(o.key),
		ContentLength: common.Int64(int64(len(data))),
		PutObjectBody: nopCloser{bytes.NewReader(data)},
		IfNoneMatch:   common.String("*"),
	})
	return err
}
