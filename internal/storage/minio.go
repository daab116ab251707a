package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// Minio stores blobs in an S3-compatible object store (MinIO locally, any S3
// provider in production). Network and service errors surface as ErrTransient,
// never as ErrNotFound.
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio creates a MinIO client and ensures the bucket exists. Objects are
// never publicly readable: every read goes through per-request authorization.
func NewMinio(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Minio, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx := context.Background()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		log.Info().Str("bucket", bucket).Msg("storage: created bucket")
	}

	return &Minio{client: client, bucket: bucket}, nil
}

// Name returns the backend discriminator.
func (m *Minio) Name() string { return "s3" }

// Store uploads data under a generated unique object key.
func (m *Minio) Store(ctx context.Context, data []byte, originalName string) (string, error) {
	ref := uuid.NewString() + "_" + sanitizeName(originalName)
	_, err := m.client.PutObject(ctx, m.bucket, ref, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", ref, wrapMinioErr(err))
	}
	return ref, nil
}

// Retrieve downloads the object, mapping a missing key to ErrNotFound and
// anything else to ErrTransient.
func (m *Minio) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", ref, wrapMinioErr(err))
	}
	defer obj.Close()

	// GetObject is lazy; the first read surfaces NoSuchKey.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", ref, wrapMinioErr(err))
	}
	return data, nil
}

// Delete removes the object. S3 DeleteObject succeeds on missing keys, so a
// Stat probe first preserves the NotFound contract shared by all backends.
func (m *Minio) Delete(ctx context.Context, ref string) error {
	if _, err := m.client.StatObject(ctx, m.bucket, ref, minio.StatObjectOptions{}); err != nil {
		return fmt.Errorf("stat object %q: %w", ref, wrapMinioErr(err))
	}
	if err := m.client.RemoveObject(ctx, m.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", ref, wrapMinioErr(err))
	}
	return nil
}

// wrapMinioErr translates MinIO errors into the package error kinds: a
// NoSuchKey response means the reference is gone, everything else is transient.
func wrapMinioErr(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
