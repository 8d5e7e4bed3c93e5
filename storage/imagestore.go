package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/threadkart/threadkart-backend-go/config"
)

const folder = "products"

// ImageStore is the external image host. Upload returns the public URL of the
// stored object; Delete is keyed by the public id derived from that URL (see
// PublicID).
type ImageStore interface {
	Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, publicID string) error
}

// S3Store stores product images in an S3 bucket.
type S3Store struct {
	s3     *s3.S3
	bucket string
	region string
}

func NewS3Store(cfg *config.Config) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Store{
		s3:     s3.New(sess),
		bucket: cfg.AWS.Bucket,
		region: cfg.AWS.Region,
	}, nil
}

// Upload reads the whole file into memory and writes one extension-less
// object. Keys carry no extension so that the public id taken from the URL
// maps back to exactly one object key.
func (s *S3Store) Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	key := fmt.Sprintf("%s/%s_%s", folder, time.Now().Format("20060102"), uuid.New().String()[:8])

	_, err = s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(header.Header.Get("Content-Type")),
		ContentLength: aws.Int64(int64(len(fileBytes))),
		ACL:           aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// Delete removes the object behind a previously returned URL's public id.
func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	_, err := s.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(folder + "/" + publicID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// PublicID derives the store identifier from an image URL: the final path
// segment with any extension stripped.
func PublicID(url string) string {
	parts := strings.Split(url, "/")
	last := parts[len(parts)-1]
	return strings.TrimSuffix(last, path.Ext(last))
}
