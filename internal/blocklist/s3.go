package blocklist

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"macblock/internal/cmderr"
)

// fetchS3 downloads an s3://bucket/key source using the default AWS
// credential chain. Used for centrally managed blocklists.
func fetchS3(uri string, timeout time.Duration) ([]byte, error) {
	bucket, key, err := splitS3URI(uri)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, cmderr.Wrap(cmderr.Transient, err, "load AWS config")
	}

	client := s3.NewFromConfig(awsCfg)

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, cmderr.Wrap(cmderr.Transient, err, "fetch %s", uri)
	}
	defer resp.Body.Close()

	body, err := readLimited(resp.Body)
	if err != nil {
		if e, ok := cmderr.As(err); ok {
			return nil, e
		}
		return nil, cmderr.Wrap(cmderr.Transient, err, "read %s", uri)
	}

	logrus.WithFields(logrus.Fields{
		"bucket": bucket,
		"key":    key,
		"bytes":  len(body),
	}).Debug("fetched S3 source")
	return body, nil
}

func splitS3URI(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", cmderr.New(cmderr.User, "invalid S3 source %q (want s3://bucket/key)", uri)
	}
	return bucket, key, nil
}
