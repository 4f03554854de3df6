// Copyright 2026 Foyer AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package action

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the closed taxonomy every failed execution maps into.
type ErrorKind string

const (
	KindValueError       ErrorKind = "VALUE_ERROR"
	KindValidationError  ErrorKind = "VALIDATION_ERROR"
	KindPermissionDenied ErrorKind = "PERMISSION_DENIED"
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindStateError       ErrorKind = "STATE_ERROR"
	KindBusinessError    ErrorKind = "BUSINESS_ERROR"
	KindUnknown          ErrorKind = "UNKNOWN"
)

// FieldIssue describes one invalid parameter.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ExecutionError is the uniform error value for dispatch failures. Kind
// drives the reflexion loop's retry policy; Context carries structured data
// (for STATE_ERROR: current_state, valid_alternatives).
type ExecutionError struct {
	Kind    ErrorKind      `json:"kind"`
	Code    string         `json:"code,omitempty"` // finer-grained code, e.g. UNKNOWN_ACTION
	Message string         `json:"message"`
	Issues  []FieldIssue   `json:"issues,omitempty"`
	Context map[string]any `json:"context,omitempty"`
	cause   error
}

func (e *ExecutionError) Error() string {
	if len(e.Issues) > 0 {
		parts := make([]string, len(e.Issues))
		for i, issue := range e.Issues {
			parts[i] = issue.Field + ": " + issue.Reason
		}
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ExecutionError) Unwrap() error { return e.cause }

// Terminal reports whether the error must stop the reflexion loop
// immediately. Currently only PERMISSION_DENIED is terminal.
func (e *ExecutionError) Terminal() bool {
	return e.Kind == KindPermissionDenied
}

// NewError builds an ExecutionError.
func NewError(kind ErrorKind, message string) *ExecutionError {
	return &ExecutionError{Kind: kind, Message: message}
}

// WithContext attaches structured context and returns the error.
func (e *ExecutionError) WithContext(key string, value any) *ExecutionError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Classify maps an arbitrary handler error into the taxonomy. Typed
// ExecutionErrors pass through; everything else is matched on message
// keywords, defaulting to UNKNOWN.
func Classify(err error) *ExecutionError {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	kind := KindUnknown
	switch {
	case strings.Contains(lower, "permission") || strings.Contains(lower, "not allowed") ||
		strings.Contains(lower, "forbidden"):
		kind = KindPermissionDenied
	case strings.Contains(lower, "not found") || strings.Contains(lower, "no such") ||
		strings.Contains(lower, "does not exist"):
		kind = KindNotFound
	case strings.Contains(lower, "transition") || strings.Contains(lower, "invalid state") ||
		strings.Contains(lower, "current state"):
		kind = KindStateError
	case strings.Contains(lower, "invalid") || strings.Contains(lower, "format") ||
		strings.Contains(lower, "must be"):
		kind = KindValueError
	case strings.Contains(lower, "validation"):
		kind = KindValidationError
	case strings.Contains(lower, "business rule") || strings.Contains(lower, "rejected"):
		kind = KindBusinessError
	}

	return &ExecutionError{Kind: kind, Message: msg, cause: err}
}
