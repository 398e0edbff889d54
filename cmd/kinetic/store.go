package main

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/kinetic/internal/config"
	"github.com/vango-dev/kinetic/pkg/recorder"
)

// openStore opens the recording store selected by cfg: S3 when a bucket
// is configured, the local bbolt file otherwise.
func openStore(cfg *config.Config) (recorder.Store, error) {
	rc := cfg.Recorder
	if rc.S3Bucket == "" {
		return recorder.OpenBolt(rc.Path)
	}

	region := rc.S3Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	client := s3.New(s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(envCredentials()),
	})
	return recorder.NewS3Store(client, rc.S3Bucket, rc.S3Prefix), nil
}

// envCredentials reads static credentials from the standard AWS
// environment variables.
func envCredentials() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		creds := aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "environment",
		}
		if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
			return aws.Credentials{}, recorder.ErrStorage.
				WithSubject("s3 credentials").
				WithSuggestion("Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
		}
		return creds, nil
	})
}
