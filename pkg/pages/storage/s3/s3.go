// Package s3 stores image files in an S3 compatible bucket (AWS S3, MinIO).
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/ozeweb/oze-website/pkg/pages"
)

// Image objects never change once written.
const objectCacheControl = "public, max-age=31536000, immutable"

// Config options for the S3 backend
type Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string // empty uses the default AWS credential chain
	SecretAccessKey string
	Endpoint        string // custom endpoint for MinIO and other S3 compatible services
	UsePathStyle    bool
	PresignDuration int // seconds, default 3600

	// PublicBaseURL serves objects from a public bucket or CDN. When empty
	// image URLs are presigned.
	PublicBaseURL string

	EnableSSE    bool
	SSEAlgorithm string // AES256 or aws:kms
	SSEKMSKeyID  string

	CreateBucketIfNotExist bool
}

// Client is the subset of the S3 API the backend uses.
type Client interface {
	manager.UploadAPIClient
	s3.HeadObjectAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// Presigner creates presigned GET requests.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Backend is a pages.BlobStore backed by one bucket.
type Backend struct {
	client    Client
	presigner Presigner
	cfg       Config
	expires   time.Duration
}

var _ pages.BlobStore = (*Backend)(nil)

// New loads the AWS configuration and connects to the bucket.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	b := NewWithClient(client, s3.NewPresignClient(client), cfg)
	if cfg.CreateBucketIfNotExist {
		if err := b.ensureBucket(ctx); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// NewWithClient creates a backend on top of an existing client. presigner
// may be nil, in which case URL only serves PublicBaseURL links.
func NewWithClient(client Client, presigner Presigner, cfg Config) *Backend {
	if cfg.PresignDuration <= 0 {
		cfg.PresignDuration = 3600
	}
	return &Backend{
		client:    client,
		presigner: presigner,
		cfg:       cfg,
		expires:   time.Duration(cfg.PresignDuration) * time.Second,
	}
}

func (b *Backend) ensureBucket(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.cfg.Bucket)})
	switch code := apiErrorCode(err); {
	case err == nil:
		return nil
	case code != "NotFound" && code != "NoSuchBucket" && code != "BadRequest":
		return fmt.Errorf("failed to check bucket %s: %w", b.cfg.Bucket, err)
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(b.cfg.Bucket)}
	if b.cfg.Region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.cfg.Region),
		}
	}
	_, err = b.client.CreateBucket(ctx, in)
	switch apiErrorCode(err) {
	case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", b.cfg.Bucket, err)
	}
	return nil
}

// Upload streams the image to the bucket with the multipart upload manager.
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader, params pages.UploadParams) error {
	in := &s3.PutObjectInput{
		Bucket:       aws.String(b.cfg.Bucket),
		Key:          aws.String(objectKey),
		Body:         reader,
		CacheControl: aws.String(objectCacheControl),
	}
	if params.MimeType != "" {
		in.ContentType = aws.String(params.MimeType)
	}
	b.applySSE(in)

	if _, err := manager.NewUploader(b.client).Upload(ctx, in); err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}
	return nil
}

func (b *Backend) applySSE(in *s3.PutObjectInput) {
	if !b.cfg.EnableSSE {
		return
	}
	switch b.cfg.SSEAlgorithm {
	case "aws:kms":
		in.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		if b.cfg.SSEKMSKeyID != "" {
			in.SSEKMSKeyId = aws.String(b.cfg.SSEKMSKeyID)
		}
	default:
		in.ServerSideEncryption = types.ServerSideEncryptionAes256
	}
}

// Download opens the object for reading.
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, objectError("download", objectKey, err)
	}
	return out.Body, nil
}

// Delete removes the object. Deleting a missing object is not an error.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", objectKey, err)
	}
	return nil
}

// GetObjectMeta reads the object's size, type and ETag with a HEAD request.
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*pages.ObjectMeta, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, objectError("stat", objectKey, err)
	}

	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &pages.ObjectMeta{
		Key:         objectKey,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: contentType,
		UpdatedAt:   aws.ToTime(out.LastModified),
		ETag:        strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

// URL returns the object's address under PublicBaseURL, or a presigned
// inline link when no public base is configured.
func (b *Backend) URL(ctx context.Context, objectKey string) (string, error) {
	if base := b.cfg.PublicBaseURL; base != "" {
		return strings.TrimRight(base, "/") + "/" + objectKey, nil
	}
	if b.presigner == nil {
		return "", nil
	}
	req, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(b.cfg.Bucket),
		Key:                        aws.String(objectKey),
		ResponseContentDisposition: aws.String("inline"),
	}, s3.WithPresignExpires(b.expires))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectKey, err)
	}
	return req.URL, nil
}

func objectError(op, key string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		return pages.ErrObjectNotFound
	}
	switch apiErrorCode(err) {
	case "NoSuchKey", "NotFound":
		return pages.ErrObjectNotFound
	}
	return fmt.Errorf("failed to %s %s: %w", op, key, err)
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
