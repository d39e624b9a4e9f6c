package documents

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Presigner issues short-lived signed upload URLs against the document
// bucket. Clients PUT straight to object storage; the backend only handles
// metadata.
type Presigner struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

// NewPresigner builds a presigner from the ambient AWS config.
func NewPresigner(ctx context.Context, region, bucket string, ttl time.Duration) (*Presigner, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &Presigner{
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		ttl:     ttl,
	}, nil
}

// UploadURL returns a presigned PUT URL and the object key it targets.
func (p *Presigner) UploadURL(ctx context.Context, assessmentID uuid.UUID, fileName, fileType string) (string, string, error) {
	key := path.Join("assessments", assessmentID.String(), uuid.New().String(), fileName)

	req, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(fileType),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return "", "", fmt.Errorf("presign upload: %w", err)
	}

	return req.URL, key, nil
}
