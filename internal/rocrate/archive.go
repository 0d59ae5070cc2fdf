// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package rocrate

import (
	"bytes"
	stderrors "errors"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// MaxMetadataSize is the largest ro-crate-metadata.json accepted.
const MaxMetadataSize = 50_000_000

// ArcpLocation returns the arcp://uuid,<v5>/ base for a crate URL, the
// name-based UUID being derived in the URL namespace.
func ArcpLocation(crateURL string) string {
	return "arcp://uuid," + uuid.NewSHA1(uuid.NameSpaceURL, []byte(crateURL)).String() + "/"
}

// ReadMetadata returns the first ro-crate-metadata.json found in the zip,
// matched by basename at any depth.
func ReadMetadata(archive []byte) ([]byte, error) {
	zr, err := openZip(archive)
	if err != nil {
		return nil, err
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || path.Base(f.Name) != MetadataFile {
			continue
		}
		if f.UncompressedSize64 > MaxMetadataSize {
			return nil, provstorerr.Errorf(provstorerr.CodeCrateMetadataTooLarge,
				"metadata file exceeds size limit (%d MB)", MaxMetadataSize/1_000_000)
		}
		return readFile(f, MaxMetadataSize)
	}
	return nil, provstorerr.Errorf(provstorerr.CodeCrateMetadataNotFound, "%s not found in the zip file", MetadataFile)
}

// ReadMember extracts the zip entry at exactly name.
func ReadMember(archive []byte, name string) ([]byte, error) {
	zr, err := openZip(archive)
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.Name == name {
			return readFile(f, -1)
		}
	}
	return nil, provstorerr.Errorf(provstorerr.CodeLookupEntityNotFound, "file %q not found in the crate", name)
}

func openZip(archive []byte) (*zip.Reader, error) {
	if len(archive) == 0 {
		return nil, provstorerr.New(provstorerr.CodeCrateUploadInvalidFormat, "empty file uploaded")
	}
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		if stderrors.Is(err, zip.ErrFormat) {
			return nil, provstorerr.New(provstorerr.CodeCrateUploadInvalidFormat, "upload is not a zip archive")
		}
		return nil, provstorerr.Wrapf(err, provstorerr.CodeCrateUploadInvalidFormat, "reading zip archive")
	}
	return zr, nil
}

func readFile(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeCrateUploadInvalidFormat, "opening %s", f.Name)
	}
	defer func() { _ = rc.Close() }()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeCrateUploadInvalidFormat, "reading %s", f.Name)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, provstorerr.Errorf(provstorerr.CodeCrateMetadataTooLarge, "%s exceeds %d bytes", f.Name, limit)
	}
	return data, nil
}

// ZipFiles writes the given name→content entries to a new zip archive.
func ZipFiles(files map[string][]byte, order ...string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if len(order) == 0 {
		for name := range files {
			order = append(order, name)
		}
	}
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			return nil, provstorerr.Wrapf(err, provstorerr.CodeServerInternalFailure, "adding %s to zip", name)
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, provstorerr.Wrapf(err, provstorerr.CodeServerInternalFailure, "writing %s to zip", name)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, provstorerr.Wrapf(err, provstorerr.CodeServerInternalFailure, "closing zip")
	}
	return buf.Bytes(), nil
}

// ZipDir archives a crate directory, skipping paths (slash-separated,
// relative to the directory) that match any doublestar exclude pattern.
func ZipDir(fsys fs.FS, exclude []string, w io.Writer) error {
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return provstorerr.Errorf(provstorerr.CodeCLIInputInvalid, "invalid exclude pattern %q", pattern)
		}
	}

	zw := zip.NewWriter(w)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == "." {
			return nil
		}
		for _, pattern := range exclude {
			if ok, _ := doublestar.Match(pattern, p); ok {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
		}
		if d.IsDir() {
			return nil
		}

		src, err := fsys.Open(p)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()

		dst, err := zw.Create(filepath.ToSlash(p))
		if err != nil {
			return err
		}
		_, err = io.Copy(dst, src)
		return err
	})
	if err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeCLIInputInvalid, "archiving crate directory")
	}
	if err := zw.Close(); err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeCLIInputInvalid, "closing crate archive")
	}
	return nil
}

// HasMetadata reports whether fsys holds a crate descriptor at its root.
func HasMetadata(fsys fs.FS) bool {
	info, err := fs.Stat(fsys, MetadataFile)
	return err == nil && !info.IsDir()
}

// ContentType guesses a download's media type from its extension.
func ContentType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

var contentTypes = map[string]string{
	"zip":  "application/zip",
	"pdf":  "application/pdf",
	"svg":  "image/svg+xml",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"json": "application/json",
	"txt":  "text/plain",
}
