// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/spf13/viper"

	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
	"github.com/provstor-dev/provstor/pkg/health"
)

// defaultHTTPClient is the package-level HTTP client used by API commands.
// Overridden in tests via httptest. Uploads of large crates can take a
// while, so the timeout is generous.
var defaultHTTPClient = &http.Client{
	Timeout: 10 * time.Minute,
}

// apiClient provides HTTP access to a running ProvStor server.
type apiClient struct {
	addr    string
	baseURL string
	http    *http.Client
}

// newAPIClient creates a client targeting the given host:port address.
// An address that already carries a scheme is used as is.
func newAPIClient(addr string) *apiClient {
	base := addr
	if !strings.Contains(addr, "://") {
		base = "http://" + addr
	}
	return &apiClient{
		addr:    addr,
		baseURL: strings.TrimSuffix(base, "/"),
		http:    defaultHTTPClient,
	}
}

// clientFromConfig targets api.address, which --address overrides.
func clientFromConfig() *apiClient {
	return newAPIClient(viper.GetString("api.address"))
}

// apiProblem is the RFC 7807 body the server returns on failure.
type apiProblem struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Location string `json:"location"`
		Value    any    `json:"value"`
	} `json:"errors"`
}

func (c *apiClient) url(p string, params url.Values) string {
	u := c.baseURL + p
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// getJSON performs a GET request and decodes the JSON response into dest.
func (c *apiClient) getJSON(ctx context.Context, p string, params url.Values, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(p, params), nil)
	if err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeCLIRequestFailure, "building request")
	}
	return c.doJSON(req, dest)
}

// postJSON performs a bodyless POST whose arguments travel as query
// parameters.
func (c *apiClient) postJSON(ctx context.Context, p string, params url.Values, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(p, params), nil)
	if err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeCLIRequestFailure, "building request")
	}
	return c.doJSON(req, dest)
}

// health fetches the dependency report. A degraded server answers 503
// with the report as body, so both statuses decode.
func (c *apiClient) health(ctx context.Context) (health.Report, error) {
	var report health.Report
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/health", nil), nil)
	if err != nil {
		return report, provstorerr.Wrapf(err, provstorerr.CodeCLIRequestFailure, "building request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return report, c.transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return report, problemError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return report, provstorerr.Wrapf(err, provstorerr.CodeCLIResponseInvalid, "invalid response")
	}
	return report, nil
}

// formPart is one file part of a multipart upload.
type formPart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// postMultipart uploads parts as multipart/form-data.
func (c *apiClient) postMultipart(ctx context.Context, p string, params url.Values, parts []formPart, dest any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, part := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     part.field,
			"filename": part.filename,
		}))
		h.Set("Content-Type", part.contentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			return provstorerr.Wrapf(err, provstorerr.CodeCLIRequestFailure, "encoding %s", part.field)
		}
		if _, err := w.Write(part.data); err != nil {
			return provstorerr.Wrapf(err, provstorerr.CodeCLIRequestFailure, "encoding %s", part.field)
		}
	}
	if err := mw.Close(); err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeCLIRequestFailure, "encoding form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(p, params), &buf)
	if err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeCLIRequestFailure, "building request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.doJSON(req, dest)
}

// download performs a GET and returns the body with the filename from
// Content-Disposition, falling back to the last path element of fallback.
func (c *apiClient) download(ctx context.Context, p string, params url.Values, fallback string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(p, params), nil)
	if err != nil {
		return nil, "", provstorerr.Wrapf(err, provstorerr.CodeCLIRequestFailure, "building request")
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", provstorerr.Wrapf(err, provstorerr.CodeCLIResponseInvalid, "reading response")
	}

	name := path.Base(strings.TrimSuffix(fallback, "/"))
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = path.Base(params["filename"])
	}
	return data, name, nil
}

func (c *apiClient) doJSON(req *http.Request, dest any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeCLIResponseInvalid, "invalid response")
	}
	return nil
}

// send performs req and turns transport failures and non-2xx responses
// into coded errors. On success the caller owns the response body.
func (c *apiClient) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()
	return nil, problemError(resp)
}

func (c *apiClient) transportError(err error) error {
	if isDialError(err) {
		return provstorerr.Errorf(provstorerr.CodeCLIAPINotRunning,
			"ProvStor API at %s is not running (connection refused)", c.addr)
	}
	return provstorerr.Wrapf(err, provstorerr.CodeCLIRequestFailure, "request failed")
}

// problemError echoes the server's detail message. When the server named
// an error code it is carried over so callers can branch on it.
func problemError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var problem apiProblem
	if err := json.Unmarshal(body, &problem); err != nil || problem.Detail == "" {
		return provstorerr.Errorf(provstorerr.CodeCLIRequestFailure,
			"API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	code := provstorerr.CodeCLIRequestFailure
	var fields []provstorerr.Attr
	for _, e := range problem.Errors {
		if e.Location == "code" {
			if s, ok := e.Value.(string); ok && s != "" {
				code = provstorerr.Code(s)
			}
			continue
		}
		fields = append(fields, provstorerr.Field(e.Location, e.Value))
	}
	fields = append(fields, provstorerr.Field("status", resp.StatusCode))
	return provstorerr.New(code, problem.Detail, fields...)
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
