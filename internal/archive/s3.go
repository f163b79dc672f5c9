package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"filippo.io/age"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"votetally/internal/config"
	"votetally/internal/retry"
)

// Uploader is the subset of manager.Uploader used here.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3 uploads backups to a bucket, optionally age-encrypted.
type S3 struct {
	uploader  Uploader
	bucket    string
	prefix    string
	recipient age.Recipient
	policy    retry.Policy
}

type S3Option func(*S3)

// WithRecipient encrypts every upload to r.
func WithRecipient(r age.Recipient) S3Option {
	return func(s *S3) { s.recipient = r }
}

func WithRetryPolicy(p retry.Policy) S3Option {
	return func(s *S3) { s.policy = p }
}

func NewS3(uploader Uploader, bucket, prefix string, opts ...S3Option) *S3 {
	s := &S3{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		policy:   retry.Policy{Attempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewS3FromConfig resolves AWS credentials the default way and parses the
// optional age recipient.
func NewS3FromConfig(ctx context.Context, cfg config.ArchiveConfig) (*S3, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3Region))
	}
	loadOpts = append(loadOpts, awsconfig.WithRetryMaxAttempts(5), awsconfig.WithRetryMode(aws.RetryModeStandard))
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var opts []S3Option
	if cfg.AgeRecipient != "" {
		r, err := age.ParseX25519Recipient(cfg.AgeRecipient)
		if err != nil {
			return nil, fmt.Errorf("parsing age recipient: %w", err)
		}
		opts = append(opts, WithRecipient(r))
	}

	uploader := manager.NewUploader(s3.NewFromConfig(awsCfg))
	return NewS3(uploader, cfg.S3Bucket, cfg.S3Prefix, opts...), nil
}

// Key returns the object key a backup at p is stored under.
func (s *S3) Key(p string) string {
	name := filepath.Base(p)
	if s.recipient != nil {
		name += ".age"
	}
	return path.Join(s.prefix, name)
}

func (s *S3) Archive(ctx context.Context, p string) error {
	key := s.Key(p)
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return s.upload(ctx, p, key)
	})
	if err != nil {
		return fmt.Errorf("archive %s to s3://%s/%s: %w", p, s.bucket, key, err)
	}
	slog.Info("backup archived", "path", p, "bucket", s.bucket, "key", key, "encrypted", s.recipient != nil)
	return nil
}

func (s *S3) upload(ctx context.Context, p, key string) error {
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return retry.Permanent(err)
		}
		return err
	}
	defer f.Close()

	var body io.Reader = f
	if s.recipient != nil {
		pr, pw := io.Pipe()
		defer pr.Close()
		go func() {
			pw.CloseWithError(encrypt(pw, f, s.recipient))
		}()
		body = pr
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	return err
}

func encrypt(w io.Writer, r io.Reader, recipient age.Recipient) error {
	encWriter, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}
