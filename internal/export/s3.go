// Package export ships generated report files to S3-compatible storage.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/envios/internal/model"
	"github.com/dukerupert/envios/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrDisabled is returned by New when no bucket or credentials are set.
var ErrDisabled = errors.New("export: S3 storage not configured")

type objectPutter interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
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

func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Uploader writes driver reports as XLSX objects.
type Uploader struct {
	client objectPutter
	bucket string
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

func New(cfg S3Config, logger *slog.Logger) (*Uploader, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	return newUploader(newS3Client(cfg), cfg, logger), nil
}

func newUploader(client objectPutter, cfg S3Config, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
		logger: logger.With("component", "export"),
		now:    time.Now,
	}
}

// Key names the object for a user's report generated at t.
func (u *Uploader) Key(userID model.Int, t time.Time) string {
	return fmt.Sprintf("%s%d/reporte-repartidores-%s.xlsx", u.prefix, userID, t.UTC().Format("2006-01-02T150405Z"))
}

// UploadReport renders rows and stores them under Key. It returns the key.
func (u *Uploader) UploadReport(ctx context.Context, userID model.Int, rows []model.DriverReportRow) (string, error) {
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, rows); err != nil {
		return "", err
	}

	key := u.Key(userID, u.now())
	size := int64(buf.Len())
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(xlsxContentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}

	u.logger.Info("report uploaded", "bucket", u.bucket, "key", key, "rows", len(rows), "bytes", size)
	return key, nil
}
