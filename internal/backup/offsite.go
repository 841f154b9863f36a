package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultRetention is how long offsite archives are kept when no retention is
// configured.
const DefaultRetention = 30 * 24 * time.Hour

var ErrOffsiteDisabled = errors.New("offsite backup not configured: S3 credentials missing")

// s3Client is the part of the S3 API the offsite uploader calls.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Enabled reports whether enough is set to reach a bucket.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

func newS3Client(cfg S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:                     region,
		Credentials:                credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle:               true,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Offsite uploads sealed archives of the local values to a bucket and prunes
// the ones older than the retention period.
type Offsite struct {
	client     s3Client
	bucket     string
	prefix     string
	src        Values
	passphrase string
	retention  time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu         sync.RWMutex
	lastUpload time.Time
}

func NewOffsite(cfg S3Config, src Values, passphrase string, retention time.Duration, logger *slog.Logger) (*Offsite, error) {
	if !cfg.Enabled() {
		return nil, ErrOffsiteDisabled
	}
	return newOffsite(newS3Client(cfg), cfg, src, passphrase, retention, logger)
}

func newOffsite(client s3Client, cfg S3Config, src Values, passphrase string, retention time.Duration, logger *slog.Logger) (*Offsite, error) {
	if len(passphrase) < MinPassphrase {
		return nil, ErrWeakPassphrase
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Offsite{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     prefix,
		src:        src,
		passphrase: passphrase,
		retention:  retention,
		logger:     logger.With("component", "offsite_backup", "bucket", cfg.Bucket),
		now:        time.Now,
	}, nil
}

// LastUpload is when an archive was last stored; zero if never.
func (o *Offsite) LastUpload() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastUpload
}

// Upload seals the current values and stores them under a timestamped key.
func (o *Offsite) Upload(ctx context.Context) (string, error) {
	data, err := Export(o.src, o.passphrase)
	if err != nil {
		return "", err
	}
	now := o.now().UTC()
	key := fmt.Sprintf("%sfamfund-%s.bak", o.prefix, now.Format("2006-01-02T150405Z"))

	if _, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(o.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	}); err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}

	o.mu.Lock()
	o.lastUpload = now
	o.mu.Unlock()
	o.logger.Info("offsite backup stored", "key", key, "bytes", len(data))
	return key, nil
}

// Cleanup deletes archives under the prefix older than the retention period
// and returns how many were removed. A failed delete is logged and skipped.
func (o *Offsite) Cleanup(ctx context.Context) (int, error) {
	before := o.now().Add(-o.retention)
	var expired []string

	pages := s3.NewListObjectsV2Paginator(o.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(o.bucket),
		Prefix: aws.String(o.prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("list s3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil {
				continue
			}
			if obj.LastModified.Before(before) {
				expired = append(expired, *obj.Key)
			}
		}
	}

	removed := 0
	for _, key := range expired {
		if _, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(o.bucket),
			Key:    aws.String(key),
		}); err != nil {
			o.logger.Warn("delete expired backup", "key", key, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		o.logger.Info("expired offsite backups removed", "count", removed)
	}
	return removed, nil
}

// RunOnce uploads an archive, then prunes expired ones.
func (o *Offsite) RunOnce(ctx context.Context) error {
	if _, err := o.Upload(ctx); err != nil {
		return err
	}
	if _, err := o.Cleanup(ctx); err != nil {
		o.logger.Warn("offsite cleanup failed", "error", err)
	}
	return nil
}

// Run calls RunOnce every interval until ctx is done.
func (o *Offsite) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := o.RunOnce(ctx); err != nil {
				o.logger.Error("scheduled offsite backup failed", "error", err)
			}
		}
	}
}
