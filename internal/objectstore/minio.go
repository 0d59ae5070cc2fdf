// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/provstor-dev/provstor/internal/config"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// Minio is an S3-compatible backend.
type Minio struct {
	client *minio.Client
}

// NewMinio connects to the endpoint in cfg. No request is made until the
// first operation.
func NewMinio(cfg config.MinioConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeServerConfigInvalid, "creating minio client for %s", cfg.Endpoint)
	}
	return &Minio{client: client}, nil
}

func (m *Minio) Put(ctx context.Context, bucket, name string, data []byte) error {
	_, err := m.client.PutObject(ctx, bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/zip"})
	if err != nil {
		return minioErr(err, "uploading %s/%s", bucket, name)
	}
	return nil
}

func (m *Minio) Get(ctx context.Context, bucket, name string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, minioErr(err, "fetching %s/%s", bucket, name)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, minioErr(err, "reading %s/%s", bucket, name)
	}
	return data, nil
}

func (m *Minio) Remove(ctx context.Context, bucket, name string) error {
	if err := m.client.RemoveObject(ctx, bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return minioErr(err, "removing %s/%s", bucket, name)
	}
	return nil
}

func (m *Minio) List(ctx context.Context, bucket string) ([]string, error) {
	var names []string
	for obj := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, minioErr(obj.Err, "listing %s", bucket)
		}
		names = append(names, obj.Key)
	}
	return names, nil
}

func (m *Minio) Has(ctx context.Context, bucket, name string) (bool, error) {
	_, err := m.client.StatObject(ctx, bucket, name, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return false, nil
	}
	return false, minioErr(err, "checking %s/%s", bucket, name)
}

func (m *Minio) Exists(ctx context.Context, bucket string) (bool, error) {
	ok, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, minioErr(err, "checking bucket %s", bucket)
	}
	return ok, nil
}

// Ensure creates the bucket and its policy on first use. An existing
// bucket is left as is.
func (m *Minio) Ensure(ctx context.Context, bucket string) error {
	ok, err := m.Exists(ctx, bucket)
	if err != nil || ok {
		return err
	}
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
			return minioErr(err, "creating bucket %s", bucket)
		}
	}
	policy, err := ReadOnlyPolicy(bucket)
	if err != nil {
		return err
	}
	if err := m.client.SetBucketPolicy(ctx, bucket, policy); err != nil {
		return minioErr(err, "setting policy on bucket %s", bucket)
	}
	return nil
}

type policyStatement struct {
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

// ReadOnlyPolicy is the bucket policy that lets anyone list the bucket and
// read its objects, and nobody anonymous write them.
func ReadOnlyPolicy(bucket string) (string, error) {
	anyone := map[string][]string{"AWS": {"*"}}
	arn := "arn:aws:s3:::" + bucket
	doc, err := json.Marshal(bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{
			{Effect: "Allow", Principal: anyone, Action: []string{"s3:GetBucketLocation", "s3:ListBucket"}, Resource: []string{arn}},
			{Effect: "Allow", Principal: anyone, Action: []string{"s3:GetObject"}, Resource: []string{arn + "/*"}},
		},
	})
	if err != nil {
		return "", provstorerr.Wrapf(err, provstorerr.CodeServerInternalFailure, "encoding bucket policy")
	}
	return string(doc), nil
}

func minioErr(err error, format string, args ...any) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound:
		return provstorerr.Wrapf(err, provstorerr.CodeLookupEntityNotFound, format, args...)
	case isUnreachable(err):
		return provstorerr.Wrapf(err, provstorerr.CodeUpstreamObjectstoreDown, format, args...)
	default:
		return provstorerr.Wrapf(err, provstorerr.CodeUpstreamObjectstoreFailed, format, args...)
	}
}

func isUnreachable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
