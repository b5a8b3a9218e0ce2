package storage

import (
	"context"
	"time"
)

// ObjectInfo describes one archived object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// UploadOptions conveys upload destination metadata. ProgressCallback, when
// set, is invoked with bytes uploaded so far and the combined size of the
// batch.
type UploadOptions struct {
	Bucket           string
	KeyPrefix        string
	ProgressCallback func(done, total int64)
}

// Service archives cataloged media files in remote object storage.
type Service interface {
	// UploadFiles uploads each local file under opts.KeyPrefix and returns
	// the resulting location as an s3:// URI.
	UploadFiles(ctx context.Context, paths []string, opts UploadOptions) (string, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	DeletePrefix(ctx context.Context, bucket, prefix string) error
	// GetObjectURL returns a presigned GET URL. A non-positive expires falls
	// back to a short default.
	GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}
