// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Modified for dataprep: NOT_FOUND/PARSE/PERMISSION codes, CodeOf and IsCode.

// Package errors provides the structured error kinds shared by the file,
// JSON and data-loading helpers.
//
// Every helper in this module that clarifies an error keeps the original
// cause attached, so errors.Is and errors.As from the standard library keep
// working on the returned value:
//
//	data, err := utils.OpenJSON(path)
//	if errors.IsCode(err, errors.ErrCodeParse) {
//	    // malformed document
//	}
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a structured error classification.
type ErrorCode string

const (
	// ErrCodePermission indicates the filesystem refused the operation.
	ErrCodePermission ErrorCode = "PERMISSION"
	// ErrCodeSerialization indicates a value could not be encoded.
	ErrCodeSerialization ErrorCode = "SERIALIZATION"
	// ErrCodeParse indicates malformed input (JSON or CSV).
	ErrCodeParse ErrorCode = "PARSE"
	// ErrCodeNotFound indicates a requested file or directory does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal is the generic wrapped-error kind.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// StructuredError carries a code, a clarified message, the original cause
// and optional context (file path, byte offset, ...).
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a code and a clarified message.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithContext wraps an error with additional context information.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// CodeOf returns the code of the outermost StructuredError in err's chain,
// or the empty code when there is none.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
