package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// S3Store writes attachments to an S3 compatible bucket.
type S3Store struct {
	cfg    S3Config
	client *minio.Client
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	cl, err := minio.New(strings.TrimPrefix(cfg.Endpoint, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &S3Store{cfg: cfg, client: cl}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (s *S3Store) Save(ctx context.Context, r io.Reader) (Asset, error) {
	u, err := prepare(r)
	if err != nil {
		return Asset{}, err
	}

	_, err = s.client.PutObject(ctx, s.cfg.Bucket, u.name,
		bytes.NewReader(u.data), int64(len(u.data)),
		minio.PutObjectOptions{ContentType: u.contentType})
	if err != nil {
		return Asset{}, fmt.Errorf("put object: %w", err)
	}

	return u.asset(s.objectURL(u.name)), nil
}

func (s *S3Store) objectURL(key string) string {
	return strings.TrimSuffix(s.client.EndpointURL().String(), "/") + "/" + s.cfg.Bucket + "/" + key
}
