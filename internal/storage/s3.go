package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/tapestry-analytics/tapestry/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// pageCountMetadataKey is set by the text-extraction collaborator when it
// writes the plain-text object.
const pageCountMetadataKey = "page-count"

// getTextMaxTries bounds re-reads of a text object on transient S3 errors.
const getTextMaxTries = 3

// objectGetter is the slice of the S3 client the TextLoader depends on.
type objectGetter interface {
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds an S3 client from AWS_* environment settings.
func NewS3Client(ctx context.Context) *s3.Client {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client
}

// TextLoader fetches the plain-text rendition of ingested documents. The
// text-extraction collaborator converts source files and stores the result
// as "<document id>.txt" with a page-count metadata entry.
type TextLoader struct {
	client objectGetter
	bucket string
}

// NewTextLoader returns a TextLoader reading from the configured bucket.
func NewTextLoader(client objectGetter) *TextLoader {
	return &TextLoader{
		client: client,
		bucket: util.GetEnv("AWS_BUCKET"),
	}
}

// GetText downloads a document's extracted text and its page count.
// Transient fetch failures are retried before the job is failed.
func (l *TextLoader) GetText(ctx context.Context, documentID string) (string, int, error) {
	key := fmt.Sprintf("documents/%s.txt", documentID)
	var result *s3.GetObjectOutput
	err := util.RetryErrWithContext(ctx, getTextMaxTries, func(ctx context.Context) error {
		var err error
		result, err = l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to get document text from S3: %w", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return "", 0, fmt.Errorf("failed to read document text: %w", err)
	}

	pageCount := 0
	if raw, ok := result.Metadata[pageCountMetadataKey]; ok {
		if parsed, err := strconv.Atoi(raw); err == nil {
			pageCount = parsed
		}
	}

	return buf.String(), pageCount, nil
}
