package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"qbank/internal/utility"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	aws_s3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type AWSConfig struct {
	AccessKeyID     string
	AccessKeySecret string
	Region          string
	// Endpoint is set for S3-compatible providers (R2, Spaces); empty means AWS.
	Endpoint      string
	Bucket        string
	PublicBaseURL string
}

func CreateSession(awsConfig AWSConfig) (*session.Session, error) {
	cfg := &aws.Config{
		Region: aws.String(awsConfig.Region),
	}
	if awsConfig.AccessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentials(awsConfig.AccessKeyID, awsConfig.AccessKeySecret, "")
	}
	if awsConfig.Endpoint != "" {
		cfg.Endpoint = aws.String(awsConfig.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	return session.NewSession(cfg)
}

// Store hosts question bank assets in an S3 bucket.
type Store struct {
	bucket   string
	baseURL  string
	svc      *aws_s3.S3
	uploader *s3manager.Uploader
}

func NewStore(awsConfig AWSConfig) (*Store, error) {
	sess, err := CreateSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	base := awsConfig.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", awsConfig.Bucket, awsConfig.Region)
	}
	return &Store{
		bucket:   awsConfig.Bucket,
		baseURL:  strings.TrimRight(base, "/"),
		svc:      aws_s3.New(sess),
		uploader: s3manager.NewUploader(sess),
	}, nil
}

func (s *Store) Upload(ctx context.Context, folder string, asset utility.Asset) (*utility.UploadResult, error) {
	key, publicID, format := utility.NewObjectKey(folder, asset.Filename)
	body, err := asset.Open()
	if err != nil {
		return nil, err
	}
	defer body.Close()

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(asset.DetectContentType()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	return &utility.UploadResult{
		URL:      s.baseURL + "/" + key,
		PublicID: publicID,
		Format:   format,
		Size:     asset.Size,
	}, nil
}

func (s *Store) Delete(ctx context.Context, url string) (string, error) {
	key, ok := utility.ObjectKeyFromURL(url)
	if !ok {
		return utility.DeleteNotFound, nil
	}

	_, err := s.svc.HeadObjectWithContext(ctx, &aws_s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var reqErr awserr.RequestFailure
		if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
			return utility.DeleteNotFound, nil
		}
		return "", fmt.Errorf("head object %s: %w", key, err)
	}

	_, err = s.svc.DeleteObjectWithContext(ctx, &aws_s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("delete object %s: %w", key, err)
	}
	return utility.DeleteOK, nil
}
