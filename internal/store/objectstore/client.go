// Package objectstore writes and reads the full JSON body of a
// BehaviourProfile to/from an S3-compatible object store, keyed by
// the s3_key the relational metadata row references (§6). The
// relational store never holds the body itself — only the key.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/clusterhealth/copilot/internal/behaviourprofile"
	copilotErrors "github.com/clusterhealth/copilot/internal/observability/errors"
)

// Client stores behaviour profile bodies in a single S3 bucket.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New builds a Client against bucket using the default AWS config
// resolution chain (environment, shared config, IMDS).
func New(ctx context.Context, bucket string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, copilotErrors.FailedToWithDetails("load AWS config", "objectstore", bucket, err)
	}
	return &Client{s3: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// NewWithClient wraps an already-constructed s3.Client, for tests or
// callers that need a non-default endpoint (e.g. a local S3-compatible
// server).
func NewWithClient(client *s3.Client, bucket string) *Client {
	return &Client{s3: client, bucket: bucket}
}

// Key derives the canonical object key for a profile id.
func Key(profileID string) string {
	return fmt.Sprintf("behaviour-profiles/%s.json", profileID)
}

// PutProfile writes profile's full JSON body to key.
func (c *Client) PutProfile(ctx context.Context, key string, profile behaviourprofile.BehaviourProfile) error {
	body, err := json.Marshal(profile)
	if err != nil {
		return copilotErrors.FailedToWithDetails("encode profile", "objectstore", key, err)
	}

	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return copilotErrors.FailedToWithDetails("put object", "objectstore", key, err)
	}
	return nil
}

// GetProfile reads and decodes the profile body stored at key.
func (c *Client) GetProfile(ctx context.Context, key string) (behaviourprofile.BehaviourProfile, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return behaviourprofile.BehaviourProfile{}, copilotErrors.FailedToWithDetails("get object", "objectstore", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return behaviourprofile.BehaviourProfile{}, copilotErrors.FailedToWithDetails("read object body", "objectstore", key, err)
	}

	var profile behaviourprofile.BehaviourProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return behaviourprofile.BehaviourProfile{}, copilotErrors.FailedToWithDetails("decode profile", "objectstore", key, err)
	}
	return profile, nil
}
