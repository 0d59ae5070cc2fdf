// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package objectstore

import (
	"bytes"
	"context"
	"os"
	"path"
	"sort"

	"github.com/spf13/afero"

	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// Filesystem keeps each bucket as a directory. It suits single-host
// deployments and tests; it has no access policy of its own.
type Filesystem struct {
	fs afero.Fs
}

// NewFilesystem roots a store at dir on the OS filesystem.
func NewFilesystem(dir string) (*Filesystem, error) {
	if dir == "" {
		return nil, provstorerr.New(provstorerr.CodeServerConfigInvalid, "objectstore.filesystem.root must be set")
	}
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeUpstreamObjectstoreFailed, "creating %s", dir)
	}
	return NewFilesystemFs(afero.NewBasePathFs(osFs, dir)), nil
}

// NewFilesystemFs uses fsys as the store root.
func NewFilesystemFs(fsys afero.Fs) *Filesystem {
	return &Filesystem{fs: fsys}
}

func (f *Filesystem) Put(_ context.Context, bucket, name string, data []byte) error {
	if err := afero.WriteReader(f.fs, path.Join(bucket, name), bytes.NewReader(data)); err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeUpstreamObjectstoreFailed, "writing %s/%s", bucket, name)
	}
	return nil
}

func (f *Filesystem) Get(_ context.Context, bucket, name string) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, path.Join(bucket, name))
	if os.IsNotExist(err) {
		return nil, provstorerr.Errorf(provstorerr.CodeLookupEntityNotFound, "object %s/%s not found", bucket, name)
	}
	if err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeUpstreamObjectstoreFailed, "reading %s/%s", bucket, name)
	}
	return data, nil
}

func (f *Filesystem) Remove(_ context.Context, bucket, name string) error {
	if err := f.fs.Remove(path.Join(bucket, name)); err != nil && !os.IsNotExist(err) {
		return provstorerr.Wrapf(err, provstorerr.CodeUpstreamObjectstoreFailed, "removing %s/%s", bucket, name)
	}
	return nil
}

func (f *Filesystem) List(_ context.Context, bucket string) ([]string, error) {
	infos, err := afero.ReadDir(f.fs, bucket)
	if err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeUpstreamObjectstoreFailed, "listing %s", bucket)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *Filesystem) Has(_ context.Context, bucket, name string) (bool, error) {
	ok, err := afero.Exists(f.fs, path.Join(bucket, name))
	if err != nil {
		return false, provstorerr.Wrapf(err, provstorerr.CodeUpstreamObjectstoreFailed, "checking %s/%s", bucket, name)
	}
	return ok, nil
}

func (f *Filesystem) Exists(_ context.Context, bucket string) (bool, error) {
	ok, err := afero.DirExists(f.fs, bucket)
	if err != nil {
		return false, provstorerr.Wrapf(err, provstorerr.CodeUpstreamObjectstoreFailed, "checking %s", bucket)
	}
	return ok, nil
}

func (f *Filesystem) Ensure(_ context.Context, bucket string) error {
	if err := f.fs.MkdirAll(bucket, 0o755); err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeUpstreamObjectstoreFailed, "creating %s", bucket)
	}
	return nil
}
