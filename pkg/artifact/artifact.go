// Package artifact uploads run inputs (such as the coverage file) to Cloud
// Storage so they outlive the CI job.
package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/dustin/go-humanize"
	"google.golang.org/api/option"

	"github.com/jupierce/pr-coverage/pkg/log"
)

// Bucket is the object store the uploader writes to
type Bucket interface {
	NewWriter(ctx context.Context, object string) io.WriteCloser
}

type gcsBucket struct {
	handle *storage.BucketHandle
}

func (b gcsBucket) NewWriter(ctx context.Context, object string) io.WriteCloser {
	return b.handle.Object(object).NewWriter(ctx)
}

// Uploader copies local files under a named artifact prefix
type Uploader struct {
	bucket Bucket
	prefix string
	logger *log.Logger
	closer io.Closer
}

// ParseBucketURL splits "gs://bucket/some/prefix" into bucket and prefix
func ParseBucketURL(u string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(u, "gs://")
	if !ok {
		return "", "", fmt.Errorf("invalid bucket URL %q: expected gs://bucket[/prefix]", u)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid bucket URL %q: missing bucket name", u)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// NewGCSUploader creates an uploader for a gs:// URL. credentialsFile may be
// empty to use application default credentials.
func NewGCSUploader(ctx context.Context, bucketURL, credentialsFile string, logger *log.Logger) (*Uploader, error) {
	bucket, prefix, err := ParseBucketURL(bucketURL)
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	u := NewUploader(gcsBucket{handle: client.Bucket(bucket)}, prefix, logger)
	u.closer = client
	return u, nil
}

// NewUploader creates an uploader over an arbitrary bucket
func NewUploader(bucket Bucket, prefix string, logger *log.Logger) *Uploader {
	if logger == nil {
		logger = log.Discard()
	}
	return &Uploader{bucket: bucket, prefix: prefix, logger: logger}
}

// Close releases the underlying client, if any
func (u *Uploader) Close() error {
	if u.closer != nil {
		return u.closer.Close()
	}
	return nil
}

// Upload writes each file to <prefix>/<name>/<base name> and returns the total
// number of bytes written.
func (u *Uploader) Upload(ctx context.Context, name string, files ...string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("artifact name is required")
	}

	var total int64
	for _, file := range files {
		object := path.Join(u.prefix, name, filepath.Base(file))
		n, err := u.uploadFile(ctx, file, object)
		if err != nil {
			return total, fmt.Errorf("upload %s: %w", file, err)
		}
		u.logger.Debug("Uploaded %s to %s (%s)", file, object, humanize.Bytes(uint64(n)))
		total += n
	}

	u.logger.Info("Successfully uploaded artifact: %s (%d files, %s)", name, len(files), humanize.Bytes(uint64(total)))
	return total, nil
}

func (u *Uploader) uploadFile(ctx context.Context, file, object string) (int64, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := u.bucket.NewWriter(ctx, object)
	n, err := io.Copy(w, f)
	if err != nil {
		w.Close()
		return n, err
	}
	if err := w.Close(); err != nil {
		return n, err
	}
	return n, nil
}
