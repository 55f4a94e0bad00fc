package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	cfgpkg "ta-go/internal/config"
	"ta-go/internal/ta"
)

// S3Remote stores the snapshot blob as a single object under a fixed key.
// Credentials come from the remote config (static keys) or the ambient AWS
// environment; the per-call bearer token is not used by this provider.
type S3Remote struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	key      string
}

var _ ta.Remote = (*S3Remote)(nil)

// NewS3Remote creates an S3Remote from configuration.
func NewS3Remote(cfg cfgpkg.RemoteConfig) (*S3Remote, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 remote requires s3_bucket to be set")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Remote{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		key:      path.Join(cfg.S3Prefix, ta.BlobName),
	}, nil
}

// Locate checks whether the blob object exists.
func (r *S3Remote) Locate(ctx context.Context, _ string) (*ta.BlobHandle, error) {
	head, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, unavailable(ta.ProviderS3, err)
	}

	handle := &ta.BlobHandle{ID: r.key, Name: ta.BlobName}
	if head.LastModified != nil {
		handle.Modified = *head.LastModified
	}
	return handle, nil
}

// Read fetches the blob object.
func (r *S3Remote) Read(ctx context.Context, _ string, handle *ta.BlobHandle) (string, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(handle.ID),
	})
	if err != nil {
		return "", unavailable(ta.ProviderS3, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return "", unavailable(ta.ProviderS3, err)
	}
	return string(body), nil
}

// Write overwrites the blob object; S3 puts are create-or-replace, so the
// create and update paths are the same request.
func (r *S3Remote) Write(ctx context.Context, _ string, content string, _ *ta.BlobHandle) (*ta.BlobHandle, error) {
	_, err := r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key),
		Body:        strings.NewReader(content),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, unavailable(ta.ProviderS3, err)
	}

	handle, err := r.Locate(ctx, "")
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, unavailable(ta.ProviderS3, fmt.Errorf("object missing immediately after upload"))
	}
	return handle, nil
}

// isNotFound reports whether an S3 error means the object does not exist.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noKey)
}
