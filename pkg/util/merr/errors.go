// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Deserialize related
	ErrUnimplementedVisit      = newSerdeError("unimplemented visit", 100, false, WithErrorType(InputError))
	ErrIncompatibleNumericType = newSerdeError("incompatible numeric type", 101, false, WithErrorType(InputError))
	ErrUnexpectedEOF           = newSerdeError("unexpected end of input", 102, true, WithErrorType(InputError))
	ErrUnknownEnumVariant      = newSerdeError("unknown enum variant", 103, false, WithErrorType(InputError))
	ErrUnknownUnionVariant     = newSerdeError("unknown union variant", 104, false, WithErrorType(InputError))
	ErrParsing                 = newSerdeError("parsing error", 105, false, WithErrorType(InputError))
	ErrMissingField            = newSerdeError("missing field", 106, false, WithErrorType(InputError))
	ErrUnknownField            = newSerdeError("unknown field", 107, false, WithErrorType(InputError))
	// ErrValueNotProduced 表示反序列化调用返回成功，但目标槽位从未被写入。
	ErrValueNotProduced = newSerdeError("value not produced", 108, false)

	// Serialize related
	ErrSerialize = newSerdeError("serialize failed", 200, false)

	// Binding related
	ErrDuplicateID = newSerdeError("duplicate member id", 300, false)

	// IO related
	ErrIoFailed = newSerdeError("IO failed", 1001, true)

	// Frame related
	ErrFrameTooLarge       = newSerdeError("frame too large", 1100, false)
	ErrFrameVersion        = newSerdeError("incompatible frame version", 1101, false)
	ErrFrameFormat         = newSerdeError("unknown frame format", 1102, false)
	ErrFrameFlags          = newSerdeError("frame flags not supported", 1103, false)
	ErrFrameTransformation = newSerdeError("frame transformation failed", 1104, false)

	// Parameter related
	ErrParameterInvalid = newSerdeError("invalid parameter", 1200, false)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to serdeError
	errUnexpected = newSerdeError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*serdeError)

func WithDetail(detail string) errorOption {
	return func(err *serdeError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *serdeError) {
		err.errType = etype
	}
}

type serdeError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newSerdeError(msg string, code int32, retriable bool, options ...errorOption) serdeError {
	err := serdeError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e serdeError) code() int32 {
	return e.errCode
}

func (e serdeError) Error() string {
	return e.msg
}

func (e serdeError) Detail() string {
	return e.detail
}

func (e serdeError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(serdeError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// 多个错误的 cause 定义为最后一个错误。
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
