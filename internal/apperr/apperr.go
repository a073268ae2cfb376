// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package apperr defines the error kinds surfaced to the admin workspace.
// Every failure of the content, crop and upload pipelines is reported as an
// *Error whose Kind decides how the HTTP layer presents it.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Kind classifies an error.
type Kind uint8

// Error kinds.
const (
	KindUnknown Kind = iota
	KindFetch
	KindValidation
	KindPersistence
	KindDecode
	KindEncode
	KindUpload
	KindURLResolution
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindFetch:         "fetch_error",
	KindValidation:    "validation_error",
	KindPersistence:   "persistence_error",
	KindDecode:        "decode_error",
	KindEncode:        "encode_error",
	KindUpload:        "upload_error",
	KindURLResolution: "url_resolution_error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", k)
}

// HTTPStatus maps a kind to the status code used by JSON handlers.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindEncode:
		return http.StatusUnprocessableEntity
	case KindDecode:
		return http.StatusBadRequest
	case KindFetch, KindPersistence, KindUpload, KindURLResolution:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error with a user-facing message.
type Error struct {
	Kind    Kind
	Op      string            // operation that failed, e.g. "projects.upsert"
	Message string            // user-facing message
	Fields  map[string]string // per-field messages for KindValidation
	Err     error             // underlying cause
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil && e.Err.Error() != e.Message {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

// Fetch wraps a failed read of a collection.
func Fetch(op string, cause error) *Error {
	return New(KindFetch, op, "failed to load data", cause)
}

// Persistence wraps a failed write. The store's message is kept as the cause.
func Persistence(op string, cause error) *Error {
	return New(KindPersistence, op, "failed to save data", cause)
}

// Decode wraps an unreadable image file.
func Decode(op string, cause error) *Error {
	return New(KindDecode, op, "image could not be read", cause)
}

// Encode wraps a failed raster export.
func Encode(op string, cause error) *Error {
	return New(KindEncode, op, "image could not be encoded", cause)
}

// Upload wraps a failed object upload.
func Upload(op string, cause error) *Error {
	return New(KindUpload, op, "failed to upload image", cause)
}

// URLResolution wraps a failed public URL lookup.
func URLResolution(op string, cause error) *Error {
	return New(KindURLResolution, op, "failed to resolve public URL", cause)
}

// Validation builds a validation error. ozzo-validation field errors are
// flattened into Fields so the form can highlight each input.
func Validation(op string, cause error) *Error {
	e := New(KindValidation, op, "invalid input", cause)
	var fieldErrs validation.Errors
	if errors.As(cause, &fieldErrs) {
		e.Fields = make(map[string]string, len(fieldErrs))
		for field, ferr := range fieldErrs {
			e.Fields[field] = ferr.Error()
		}
		e.Message = summarize(e.Fields)
	} else if cause != nil {
		e.Message = cause.Error()
	}
	return e
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindPersistence || e.Kind == KindUpload || e.Kind == KindFetch {
			if e.Err != nil {
				return e.Message + ": " + e.Err.Error()
			}
		}
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func summarize(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return strings.Join(parts, "; ")
}
