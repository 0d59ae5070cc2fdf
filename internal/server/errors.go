// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package server

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// apiError converts a domain error into an RFC 7807 body. The status
// follows the error's code; attached fields become error details.
func apiError(err error) error {
	status := provstorerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "code", provstorerr.CodeOf(err), "error", err)
	}

	fields := provstorerr.FieldsOf(err)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	details := make([]error, 0, len(keys)+1)
	if code := provstorerr.CodeOf(err); code != "" {
		details = append(details, &huma.ErrorDetail{Location: "code", Value: string(code)})
	}
	for _, k := range keys {
		details = append(details, &huma.ErrorDetail{Location: k, Value: fields[k]})
	}
	return huma.NewError(status, err.Error(), details...)
}
