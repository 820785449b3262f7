package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/proarena/arena/internal/config"
	apperrors "github.com/proarena/arena/internal/errors"
)

// Kind selects the size cap and key prefix for an upload.
type Kind string

const (
	KindPaymentProof Kind = "proofs"
	KindLogo         Kind = "logos"
	KindResult       Kind = "results"
)

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Uploader writes images to an S3-compatible bucket and hands back the
// public CDN URL to store on the record.
type Uploader struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
	proofMax   int64
	logoMax    int64
}

func NewUploader(cfg *config.Config) (*Uploader, error) {
	ctx := context.Background()

	opts := []func(*aws_config.LoadOptions) error{
		aws_config.WithRegion("auto"),
	}
	if cfg.AWS.AccessKeyID != "" {
		opts = append(opts, aws_config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, ""),
		))
	}
	if cfg.Uploads.Endpoint != "" {
		opts = append(opts, aws_config.WithBaseEndpoint(cfg.Uploads.Endpoint))
	}

	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	return &Uploader{
		client:     s3.NewFromConfig(awsCfg),
		bucket:     cfg.Uploads.Bucket,
		cdnBaseURL: strings.TrimSuffix(cfg.Uploads.CDNBaseURL, "/"),
		proofMax:   cfg.Uploads.MaxProofSizeMB * 1024 * 1024,
		logoMax:    cfg.Uploads.MaxLogoSizeMB * 1024 * 1024,
	}, nil
}

func (u *Uploader) maxSize(kind Kind) int64 {
	if kind == KindPaymentProof {
		return u.proofMax
	}
	return u.logoMax
}

// Upload validates and stores a multipart image, returning its public URL.
func (u *Uploader) Upload(ctx context.Context, kind Kind, fileHeader *multipart.FileHeader) (string, error) {
	if max := u.maxSize(kind); fileHeader.Size > max {
		return "", apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("file exceeds maximum size of %d MB", max/(1024*1024)))
	}

	contentType := fileHeader.Header.Get("Content-Type")
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return "", apperrors.New(apperrors.CodeValidation, "only JPEG, PNG and WebP images are accepted")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInternal, "failed to open uploaded file")
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInternal, "failed to read uploaded file")
	}

	key := path.Join(string(kind), uuid.New().String()+ext)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        buf,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInternal, "failed to store uploaded file")
	}

	return fmt.Sprintf("%s/%s", u.cdnBaseURL, key), nil
}
