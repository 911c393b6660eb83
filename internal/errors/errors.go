// Package errors defines the error taxonomy shared by the stores, the
// search engines and the HTTP layer. Errors carry a machine-readable Code
// through samber/oops so callers can branch on the kind of failure without
// string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	// CodeResourceMissing marks a persisted file that does not exist yet.
	CodeResourceMissing Code = "store.resource.missing"
	// CodeCorruptData marks persisted content that cannot be parsed or validated.
	CodeCorruptData Code = "store.data.corrupt"
	// CodeStorageFailure marks an I/O failure while reading or writing a store.
	CodeStorageFailure Code = "store.io.failure"

	// CodeEncodeFailure marks a per-item failure during batch indexing.
	CodeEncodeFailure Code = "index.encode.failure"
	// CodeIndexMissing marks a query against an index that was never built.
	CodeIndexMissing Code = "index.missing"

	// CodeIncompatibleEmbedding marks a dimension mismatch between vectors.
	CodeIncompatibleEmbedding Code = "search.embedding.incompatible"

	CodeEncoderUnavailable Code = "encoder.upstream.unavailable"
	CodeInvalidInput       Code = "request.invalid_input"
	CodeNotFound           Code = "request.not_found"
	CodeInternal           Code = "server.internal.failure"
)

// Sentinel values for errors.Is checks against the taxonomy.
var (
	ErrResourceMissing       = stderrors.New("resource missing")
	ErrCorruptData           = stderrors.New("corrupt data")
	ErrEncodeFailure         = stderrors.New("encode failure")
	ErrIncompatibleEmbedding = stderrors.New("incompatible embedding")
	ErrIndexMissing          = stderrors.New("search index missing")
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

func FieldImageID(id string) Attr {
	return Field("image_id", id)
}

func FieldPath(path string) Attr {
	return Field("path", path)
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

// CorruptData wraps cause as a CorruptData error for the file at path.
// The result matches ErrCorruptData and, for plain causes, cause under
// errors.Is. A coded cause is flattened to its message so CorruptData stays
// the reported code.
func CorruptData(path string, cause error) error {
	if _, ok := oops.AsOops(cause); ok {
		cause = stderrors.New(cause.Error())
	}
	return oops.Code(CodeCorruptData).
		With("path", path).
		Wrapf(stderrors.Join(ErrCorruptData, cause), "corrupt data in %s", path)
}

// IncompatibleEmbedding reports two vectors of different dimension.
func IncompatibleEmbedding(want, got int) error {
	return oops.Code(CodeIncompatibleEmbedding).
		With("want_dim", want, "got_dim", got).
		Wrapf(ErrIncompatibleEmbedding, "embedding dimension %d does not match store dimension %d", got, want)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch code := oopsErr.Code().(type) {
	case Code:
		return code
	case string:
		return Code(code)
	default:
		return Code(fmt.Sprintf("%v", code))
	}
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
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeIncompatibleEmbedding:
		return http.StatusConflict
	case CodeIndexMissing, CodeEncoderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
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
