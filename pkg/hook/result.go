// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package hook

import "errors"

// Result is a stable, closed enumeration of registry outcomes. It implements
// error so registry operations can return Result values directly; the
// c-shared shim maps them to integer codes for foreign callers.
type Result int

const (
	OK Result = 0

	ErrInvalidParameter    Result = -1
	ErrFunctionNotFound    Result = -2
	ErrAlreadyHooked       Result = -3
	ErrNotHooked           Result = -4
	ErrMemory              Result = -5
	ErrPermissionDenied    Result = -6
	ErrUnsupportedPlatform Result = -7

	// ErrNotInitialized is reported when an operation runs before Initialize.
	// Foreign callers see it as ErrInvalidParameter for wire compatibility
	// with the original ABI, but Go callers can tell the two apart.
	ErrNotInitialized Result = -8
)

var resultMessages = map[Result]string{
	OK:                     "success",
	ErrInvalidParameter:    "invalid parameter",
	ErrFunctionNotFound:    "function not found",
	ErrAlreadyHooked:       "function already hooked",
	ErrNotHooked:           "function not hooked",
	ErrMemory:              "memory allocation error",
	ErrPermissionDenied:    "permission denied",
	ErrUnsupportedPlatform: "unsupported platform",
	ErrNotInitialized:      "hook system not initialized",
}

// Message returns the static human-readable message for a result code.
func (r Result) Message() string {
	if msg, ok := resultMessages[r]; ok {
		return msg
	}
	return "unknown error"
}

// Error implements the error interface.
func (r Result) Error() string {
	return r.Message()
}

// Code returns the ABI integer code for r. ErrNotInitialized collapses to
// the ErrInvalidParameter code; everything else maps one-to-one.
func (r Result) Code() int {
	if r == ErrNotInitialized {
		return int(ErrInvalidParameter)
	}
	return int(r)
}

// ResultOf extracts the Result from an error returned by the registry,
// unwrapping as needed. Errors carrying no Result map to
// ErrInvalidParameter; nil maps to OK.
func ResultOf(err error) Result {
	if err == nil {
		return OK
	}
	var r Result
	if errors.As(err, &r) {
		return r
	}
	return ErrInvalidParameter
}
