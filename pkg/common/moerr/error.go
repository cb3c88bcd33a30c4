// Copyright 2026 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package moerr

import (
	"fmt"
)

const (
	// 0 - 99 is OK. They do not carry a message and are never returned
	// to callers as failures.
	Ok    uint16 = 0
	OkMax uint16 = 99

	// Group 1: internal errors
	ErrStart    uint16 = 20100
	ErrInternal uint16 = 20101
	ErrOOM      uint16 = 20103

	// Group 3: invalid input
	ErrInvalidInput uint16 = 20301

	// Group 4: unexpected state
	ErrInvalidState uint16 = 20400
	ErrNotFound     uint16 = 20401
	ErrDupPoolName  uint16 = 20402
	ErrNoSuchPool   uint16 = 20403

	// ErrEnd, the max value of the error code
	ErrEnd uint16 = 65535
)

var errorMsgRefer = map[uint16]string{
	ErrStart:        "internal error: error code start",
	ErrInternal:     "internal error: %s",
	ErrOOM:          "error: out of memory",
	ErrInvalidInput: "invalid input: %s",
	ErrInvalidState: "invalid state %s",
	ErrNotFound:     "not found: %s",
	ErrDupPoolName:  "duplicate pool name %s",
	ErrNoSuchPool:   "no such pool %s",
}

// Error is the only error type this module returns. The code decides
// behavior, the message is for humans.
type Error struct {
	code    uint16
	message string
}

func newError(code uint16, args ...any) *Error {
	format, ok := errorMsgRefer[code]
	if !ok {
		panic(fmt.Sprintf("missing format for error code %d", code))
	}
	var msg string
	if len(args) == 0 {
		msg = format
	} else {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{code: code, message: msg}
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

func (e *Error) Ok() bool {
	return e.code <= OkMax
}

// Is supports errors.Is matching on the code, not the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.code == e.code
}

// IsMoErrCode reports whether err carries the given code. A nil error
// matches Ok.
func IsMoErrCode(err error, rc uint16) bool {
	if err == nil {
		return rc == Ok
	}
	me, ok := err.(*Error)
	if !ok {
		return false
	}
	return me.code == rc
}

// ConvertGoError wraps a non-moerr error as an internal error so that
// callers always see an *Error. Errors that are already *Error pass
// through unchanged.
func ConvertGoError(err error) error {
	if err == nil {
		return err
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	return NewInternalError("convert go error to mo error %v", err)
}

func NewInternalError(format string, args ...any) *Error {
	return newError(ErrInternal, fmt.Sprintf(format, args...))
}

func NewOOM() *Error {
	return newError(ErrOOM)
}

func NewInvalidInput(format string, args ...any) *Error {
	return newError(ErrInvalidInput, fmt.Sprintf(format, args...))
}

func NewInvalidState(format string, args ...any) *Error {
	return newError(ErrInvalidState, fmt.Sprintf(format, args...))
}

func NewNotFound(format string, args ...any) *Error {
	return newError(ErrNotFound, fmt.Sprintf(format, args...))
}

func NewDupPoolName(name string) *Error {
	return newError(ErrDupPoolName, name)
}

func NewNoSuchPool(name string) *Error {
	return newError(ErrNoSuchPool, name)
}
