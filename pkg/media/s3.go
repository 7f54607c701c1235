package media

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Config selects the bucket; Endpoint is optional (MinIO and friends).
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PublicURL string
}

// S3Store uploads images to an S3 bucket.
type S3Store struct {
	bucket    string
	publicURL string
	uploader  *s3manager.Uploader
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, err
	}
	return &S3Store{
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		uploader:  s3manager.NewUploader(sess),
	}, nil
}

func (s *S3Store) Save(ctx context.Context, dir string, up *Upload) (string, error) {
	ct, body, err := sniff(up.Body)
	if err != nil {
		return "", err
	}
	key := newKey(dir, ct)
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(ct),
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *S3Store) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.publicURL + "/" + key
}
