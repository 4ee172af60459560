package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"writebench/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// S3 rejects non-final multipart parts smaller than this.
const s3MinPartSize = 5 * 1024 * 1024

type s3Session struct {
	client     *s3.Client
	httpClient *http.Client
	root       Root
	logger     *zap.Logger
}

func newS3Session(ctx context.Context, root Root, opts Options, logger *zap.Logger) (*s3Session, error) {
	cfg, err := config.LoadAWSConfig(ctx, opts.Region, opts.AccessKey, opts.SecretKey)
	if err != nil {
		return nil, err
	}
	httpClient, err := newHTTPClient()
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = httpClient
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	if opts.Endpoint != "" {
		logger.Info("Using custom endpoint", zap.String("endpoint", opts.Endpoint))
	}

	return &s3Session{
		client:     client,
		httpClient: httpClient,
		root:       root,
		logger:     logger,
	}, nil
}

func (s *s3Session) head(ctx context.Context, name string) (*s3.HeadObjectOutput, error) {
	return s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.root.Bucket),
		Key:    aws.String(s.root.Key(name)),
	})
}

func (s *s3Session) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.head(ctx, name)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head %s/%s: %w", s.root.Bucket, s.root.Key(name), err)
}

func (s *s3Session) Size(ctx context.Context, name string) (int64, error) {
	out, err := s.head(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("head %s/%s: %w", s.root.Bucket, s.root.Key(name), err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *s3Session) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.root.Bucket),
		Key:    aws.String(s.root.Key(name)),
	})
	if err != nil {
		return fmt.Errorf("delete object %s/%s: %w", s.root.Bucket, s.root.Key(name), err)
	}
	return nil
}

func (s *s3Session) Create(ctx context.Context, name string, opts CreateOptions) (Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logger.Debug("s3Session.Create",
		zap.String("bucket", s.root.Bucket),
		zap.String("key", s.root.Key(name)),
		zap.Int("replication", opts.Replication),
		zap.Int64("blockSize", opts.BlockSize))

	object := &s3Object{session: s, key: s.root.Key(name)}
	return newMultipartSink(ctx, object, name, opts.BlockSize, s3MinPartSize, s.logger), nil
}

func (s *s3Session) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

type s3Object struct {
	session *s3Session
	key     string
}

func (o *s3Object) begin(ctx context.Context) (string, error) {
	out, err := o.session.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(o.session.root.Bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.UploadId), nil
}

func (o *s3Object) uploadPart(ctx context.Context, uploadID string, number int, part []byte) (string, error) {
	out, err := o.session.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(o.session.root.Bucket),
		Key:           aws.String(o.key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(int32(number)),
		ContentLength: aws.Int64(int64(len(part))),
		Body:          bytes.NewReader(part),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.ETag), nil
}

func (o *s3Object) commit(ctx context.Context, uploadID string, parts []completedPart) error {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(int32(p.Number)),
		})
	}
	_, err := o.session.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(o.session.root.Bucket),
		Key:             aws.String(o.key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
		IfNoneMatch:     aws.String("*"),
	})
	return err
}

func (o *s3Object) abort(ctx context.Context, uploadID string) error {
	_, err := o.session.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(o.session.root.Bucket),
		Key:      aws.String(o.key),
		UploadId: aws.String(uploadID),
	})
	return err
}

func (o *s3Object) put(ctx context.Context, data []byte) error {
	_, err := o.session.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(o.session.root.Bucket),
		Key:           aws.String(o.key),
		ContentLength: aws.Int64(int64(len(data))),
		Body:          bytes.NewReader(data),
		IfNoneMatch:   aws.String("*"),
	})
	return err
}
