package s3infra

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/voice-console/internal/config"
	"github.com/voice-console/internal/pkg/id"
)

// API is the subset of the S3 client the archive uses.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Archive keeps a copy of every recording uploaded through the console.
type Archive struct {
	client API
	bucket string
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for S3: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

// NewArchive creates an Archive writing into bucket.
func NewArchive(client API, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket}
}

// Upload streams r to S3 under key and returns the object URL.
func (a *Archive) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

// PutRecording decodes a base64 WebM sample and stores it under
// recordings/<voiceID>/<owner>.webm. Samples the API returned no id for go
// to recordings/unassigned/<owner>/<ulid>.webm.
func (a *Archive) PutRecording(ctx context.Context, owner string, voiceID int64, audioB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	key := path.Join(voicePrefix(voiceID), sanitizeOwner(owner)+".webm")
	if voiceID <= 0 {
		key = path.Join("recordings", "unassigned", sanitizeOwner(owner), id.New()+".webm")
	}
	return a.Upload(ctx, key, bytes.NewReader(raw), "audio/webm")
}

// DeleteRecording removes the archived copies of a voice. A voice with no
// archived copy is not an error.
func (a *Archive) DeleteRecording(ctx context.Context, voiceID int64) error {
	if voiceID <= 0 {
		return nil
	}
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(voicePrefix(voiceID) + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(a.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("s3 delete object %s: %w", aws.ToString(obj.Key), err)
			}
		}
	}
	return nil
}

func voicePrefix(voiceID int64) string {
	return path.Join("recordings", strconv.FormatInt(voiceID, 10))
}

func sanitizeOwner(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, owner)
}
