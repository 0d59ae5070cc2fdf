// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error. The segment after
// the last dot is the reason and drives HTTP status mapping.
type Code string

const (
	CodeCrateUploadInvalidFormat   Code = "crate.upload.invalid_format"
	CodeCrateUploadUnsupportedType Code = "crate.upload.unsupported_media_type"
	CodeCrateUploadDuplicate       Code = "crate.upload.duplicate"
	CodeCrateMetadataNotFound      Code = "crate.metadata.not_found"
	CodeCrateMetadataTooLarge      Code = "crate.metadata.too_large"
	CodeCrateMetadataInvalidFormat Code = "crate.metadata.invalid_format"
	CodeCrateRDEMissing            Code = "crate.rde.missing"
	CodeCrateRDEAmbiguous          Code = "crate.rde.ambiguous"
	CodeCrateResultDuplicate       Code = "crate.result.duplicate"

	CodeLookupEntityNotFound      Code = "lookup.entity.not_found"
	CodeLookupLocatorUnsupported  Code = "lookup.locator.unsupported"
	CodeLookupInputInvalid        Code = "lookup.input.invalid_input"
	CodeQueryInputInvalid         Code = "query.input.invalid_input"
	CodePathopsWhenInFuture       Code = "pathops.when.in_future"
	CodePathopsSrcAlreadyMoved    Code = "pathops.src.already_moved"
	CodePathopsInputInvalid       Code = "pathops.input.invalid_input"
	CodeUpstreamTriplestoreDown   Code = "upstream.triplestore.unavailable"
	CodeUpstreamTriplestoreFailed Code = "upstream.triplestore.failure"
	CodeUpstreamObjectstoreDown   Code = "upstream.objectstore.unavailable"
	CodeUpstreamObjectstoreFailed Code = "upstream.objectstore.failure"

	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeSecretInvalidInput   Code = "secret.input.invalid_input"
	CodeSecretNotFound       Code = "secret.entry.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretDeleteFailure  Code = "secret.delete.failure"
	CodeSecretListFailure    Code = "secret.list.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"
	CodeServerNotImplemented  Code = "server.method.not_implemented"

	CodeCLIAPINotRunning   Code = "cli.api.not_running"
	CodeCLIRequestFailure  Code = "cli.request.failure"
	CodeCLIResponseInvalid Code = "cli.response.invalid"
	CodeCLISetupFailure    Code = "cli.setup.failure"
	CodeCLIInputInvalid    Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldCrateURL(value string) Attr {
	return Field("crate_url", value)
}

func FieldEntity(value string) Attr {
	return Field("entity", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format" || r == "unsupported"
}

// IsUnprocessable reports errors raised for well-formed input that violates
// a domain rule (missing or ambiguous root entity, duplicate results, bad
// path-operation preconditions).
func IsUnprocessable(err error) bool {
	switch reason(CodeOf(err)) {
	case "missing", "ambiguous", "duplicate", "in_future", "already_moved":
		return true
	}
	return false
}

func IsUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.HasPrefix(string(code), "upstream.") && reason(code) == "failure"
}

func HTTPStatus(err error) int {
	switch {
	case HasCode(err, CodeServerNotImplemented):
		return http.StatusNotImplemented
	case IsNotFound(err):
		return http.StatusNotFound
	case reason(CodeOf(err)) == "too_large":
		return http.StatusRequestEntityTooLarge
	case reason(CodeOf(err)) == "unsupported_media_type":
		return http.StatusUnsupportedMediaType
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsUnprocessable(err):
		return http.StatusUnprocessableEntity
	case IsUnavailable(err):
		return http.StatusServiceUnavailable
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
