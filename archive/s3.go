package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/stsysd/dosesim/config"
	"github.com/stsysd/dosesim/model"
)

var _ Store = (*S3Store)(nil)

// S3Store はS3互換ストレージ (AWS S3, MinIO) に保存するアーカイブです。
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store は設定からS3Storeを作成します。
// optFnsはクライアントのオプションを上書きします。
func NewS3Store(ctx context.Context, cfg config.S3Config, optFns ...func(*s3.Options)) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Store) Driver() string { return DriverS3 }

// Put はシミュレーションをオブジェクトとして保存します。
// S3には作成のみの書き込みがないため、先にHeadObjectで存在を確認します。
func (s *S3Store) Put(ctx context.Context, sim *model.Simulation) (string, error) {
	data, err := encode(sim)
	if err != nil {
		return "", err
	}

	key := Key(sim)
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err == nil {
		return "", fmt.Errorf("%s: %w", key, ErrExists)
	}
	if !isNotFound(err) {
		return "", fmt.Errorf("failed to check archive object: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{"substance": sim.Substance.Name},
	})
	if err != nil {
		return "", fmt.Errorf("failed to put archive object: %w", err)
	}
	return key, nil
}

func isNotFound(err error) bool {
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
