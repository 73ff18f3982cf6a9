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
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码。
// 非 serdeError 的错误统一归为 errUnexpected。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case serdeError:
		return specificErr.code()
	default:
		return errUnexpected.code()
	}
}

func IsRetryableErr(err error) bool {
	if err, ok := errors.Cause(err).(serdeError); ok {
		return err.retriable
	}

	return false
}

func GetErrorType(err error) ErrorType {
	if merr, ok := errors.Cause(err).(serdeError); ok {
		return merr.errType
	}

	return SystemError
}

// IsInputError 判断错误是否由输入数据（而非系统故障）引起。
func IsInputError(err error) bool {
	return GetErrorType(err) == InputError
}

// Deserialize 相关错误封装。
func WrapErrUnimplementedVisit(target string, kind string, msg ...string) error {
	err := wrapFields(ErrUnimplementedVisit, value("target", target), value("kind", kind))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrIncompatibleNumericType(target string, actual any, msg ...string) error {
	err := wrapFields(ErrIncompatibleNumericType, value("target", target), value("value", actual))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrUnexpectedEOF(offset int64, msg ...string) error {
	err := wrapFields(ErrUnexpectedEOF, value("offset", offset))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrUnknownEnumVariant(enum string, variant any, msg ...string) error {
	err := wrapFields(ErrUnknownEnumVariant, value("enum", enum), value("variant", variant))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrUnknownUnionVariant(union string, variant any, msg ...string) error {
	err := wrapFields(ErrUnknownUnionVariant, value("union", union), value("variant", variant))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParsing(offset int64, reason string) error {
	return wrapFieldsWithDesc(ErrParsing, reason, value("offset", offset))
}

func WrapErrMissingField(record string, field string, msg ...string) error {
	err := wrapFields(ErrMissingField, value("record", record), value("field", field))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrUnknownField(record string, key any, msg ...string) error {
	err := wrapFields(ErrUnknownField, value("record", record), value("key", key))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrValueNotProduced(target string) error {
	return wrapFields(ErrValueNotProduced, value("target", target))
}

// Serialize 相关错误封装。
func WrapErrSerialize(reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrSerialize, reason)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrDuplicateID(record string, id uint32) error {
	return wrapFields(ErrDuplicateID, value("record", record), value("id", id))
}

// WrapErrIoFailed 将底层 I/O 错误封装为 ErrIoFailed，保留原始错误链。
// io.EOF 与 io.ErrUnexpectedEOF 统一转换为 ErrUnexpectedEOF。
func WrapErrIoFailed(offset int64, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return WrapErrUnexpectedEOF(offset)
	}
	return Combine(err, wrapFields(ErrIoFailed, value("offset", offset)))
}

// Frame 相关错误封装。
func WrapErrFrameTooLarge(size, limit uint32) error {
	return wrapFields(ErrFrameTooLarge, bound("size", size, 0, limit))
}

func WrapErrFrameVersion(expected, actual string) error {
	return wrapFields(ErrFrameVersion, value("expected", expected), value("actual", actual))
}

func WrapErrFrameFormat(format any, msg ...string) error {
	err := wrapFields(ErrFrameFormat, value("format", format))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrFrameFlags(flags uint64, reason string) error {
	return wrapFieldsWithDesc(ErrFrameFlags, reason, value("flags", flags))
}

func WrapErrFrameTransformation(stage string, err error) error {
	return Combine(err, wrapFields(ErrFrameTransformation, value("stage", stage)))
}

func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterInvalidMsg(fmt string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmt, args...)
}

func wrapFields(err serdeError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err serdeError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}

type boundField struct {
	name  string
	value any
	lower any
	upper any
}

func bound(name string, value, lower, upper any) boundField {
	return boundField{
		name,
		value,
		lower,
		upper,
	}
}

func (f boundField) String() string {
	return fmt.Sprintf("%v out of range %v <= %s <= %v", f.value, f.lower, f.name, f.upper)
}
