package blobstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore serves blobs from an S3-compatible bucket. Every ReadAt is an
// independent ranged GET, so handles carry no read position.
type MinioStore struct {
	client      *minio.Client
	bucket      string
	prefix      string
	readTimeout time.Duration
}

// NewMinioStore connects to the configured endpoint and checks the bucket.
func NewMinioStore(ctx context.Context, cfg config.MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s: %w", cfg.Bucket, ErrNotFound)
	}
	return &MinioStore{
		client:      client,
		bucket:      cfg.Bucket,
		prefix:      cfg.Prefix,
		readTimeout: 30 * time.Second,
	}, nil
}

func (s *MinioStore) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *MinioStore) Open(ctx context.Context, name string) (Blob, error) {
	key := s.key(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, fmt.Errorf("object %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}
	return &minioBlob{
		client:      s.client,
		bucket:      s.bucket,
		key:         key,
		size:        info.Size,
		readTimeout: s.readTimeout,
	}, nil
}

type minioBlob struct {
	client      *minio.Client
	bucket      string
	key         string
	size        int64
	readTimeout time.Duration
}

func (b *minioBlob) Size() int64 {
	return b.size
}

func (b *minioBlob) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off >= b.size {
		return 0, io.EOF
	}
	end := off + int64(len(p)) - 1
	short := false
	if end >= b.size {
		end = b.size - 1
		short = true
	}
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.readTimeout)
	defer cancel()
	obj, err := b.client.GetObject(ctx, b.bucket, b.key, opts)
	if err != nil {
		return 0, fmt.Errorf("get object %s: %w", b.key, err)
	}
	defer obj.Close()

	n, err := io.ReadFull(obj, p[:end-off+1])
	if err != nil {
		return n, err
	}
	if short {
		return n, io.EOF
	}
	return n, nil
}

func (b *minioBlob) Close() error {
	return nil
}
