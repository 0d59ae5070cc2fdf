// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

// Package objectstore keeps crate archives in a bucketed blob store and
// names them with http://{host}/{bucket}/{name} URLs.
package objectstore

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/provstor-dev/provstor/internal/config"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// Backend is a blob store keyed by bucket and object name.
type Backend interface {
	Put(ctx context.Context, bucket, name string, data []byte) error
	Get(ctx context.Context, bucket, name string) ([]byte, error)
	Remove(ctx context.Context, bucket, name string) error
	List(ctx context.Context, bucket string) ([]string, error)
	// Has reports whether name is stored in bucket. An absent bucket holds
	// nothing.
	Has(ctx context.Context, bucket, name string) (bool, error)
	// Exists reports whether bucket exists.
	Exists(ctx context.Context, bucket string) (bool, error)
	// Ensure creates bucket with an anonymous read-only policy if needed.
	Ensure(ctx context.Context, bucket string) error
}

// Archive is the crate archive store: one backend, one bucket, and the
// public host that crate URLs are minted under.
type Archive struct {
	backend Backend
	host    string
	bucket  string
}

// NewArchive wraps backend.
func NewArchive(backend Backend, host, bucket string) *Archive {
	return &Archive{backend: backend, host: host, bucket: bucket}
}

// New builds the archive store selected by cfg.Backend.
func New(cfg config.ObjectstoreConfig) (*Archive, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Backend {
	case "minio":
		b, err = NewMinio(cfg.Minio)
	case "filesystem":
		b, err = NewFilesystem(cfg.Filesystem.Root)
	default:
		return nil, provstorerr.Errorf(provstorerr.CodeStoreBackendUnsupported, "unsupported objectstore backend: %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewArchive(b, cfg.Host(), cfg.Bucket), nil
}

// Bucket is the bucket crates are stored in.
func (a *Archive) Bucket() string { return a.bucket }

// Host is the host crate URLs are minted under.
func (a *Archive) Host() string { return a.host }

// URL names an object: http://{host}/{bucket}/{name}.
func (a *Archive) URL(name string) string {
	return "http://" + a.host + "/" + a.bucket + "/" + name
}

// ParseURL inverts URL. URLs on other hosts are not ours to serve.
func (a *Archive) ParseURL(raw string) (bucket, name string, err error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", "", provstorerr.Errorf(provstorerr.CodeLookupLocatorUnsupported, "unsupported crate URL %q", raw)
	}
	if u.Host != a.host {
		return "", "", provstorerr.Errorf(provstorerr.CodeLookupLocatorUnsupported,
			"crate URL %q is not served by this object store (%s)", raw, a.host)
	}
	bucket, name, ok := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if !ok || bucket == "" || name == "" {
		return "", "", provstorerr.Errorf(provstorerr.CodeLookupLocatorUnsupported, "crate URL %q has no bucket/object path", raw)
	}
	return bucket, name, nil
}

// Put stores data under name, creating the bucket on first use, and
// returns the object's URL.
func (a *Archive) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if err := a.backend.Ensure(ctx, a.bucket); err != nil {
		return "", err
	}
	if err := a.backend.Put(ctx, a.bucket, name, data); err != nil {
		return "", err
	}
	slog.Debug("stored crate archive", "bucket", a.bucket, "name", name, "bytes", len(data))
	return a.URL(name), nil
}

// Get fetches the object a crate URL names.
func (a *Archive) Get(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, name, err := a.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return a.backend.Get(ctx, bucket, name)
}

// Has reports whether name is already stored in the crate bucket.
func (a *Archive) Has(ctx context.Context, name string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	return a.backend.Has(ctx, a.bucket, name)
}

// Remove deletes name from the crate bucket.
func (a *Archive) Remove(ctx context.Context, name string) error {
	return a.backend.Remove(ctx, a.bucket, name)
}

// List returns the object names in the crate bucket; an absent bucket is
// empty.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	ok, err := a.backend.Exists(ctx, a.bucket)
	if err != nil || !ok {
		return nil, err
	}
	return a.backend.List(ctx, a.bucket)
}

// Ping checks that the backend answers.
func (a *Archive) Ping(ctx context.Context) error {
	_, err := a.backend.Exists(ctx, a.bucket)
	return err
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return provstorerr.Errorf(provstorerr.CodeCrateUploadInvalidFormat, "invalid archive name %q", name)
	}
	return nil
}
