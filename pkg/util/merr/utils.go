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
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case hallError:
		return specificErr.code()

	default:
		if errors.Is(specificErr, context.Canceled) {
			return CanceledCode
		} else if errors.Is(specificErr, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

// IsRetryableErr 返回该错误是否允许调用方重试。
// 协议层的可恢复错误（认证失败、房间已满等）为可重试，传输层错误不可重试。
func IsRetryableErr(err error) bool {
	cause := errors.Cause(err)
	if err, ok := cause.(hallError); ok {
		return err.retriable
	}

	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

// Authentication related

func WrapErrAuthenticationFailed(account any, msg ...string) error {
	err := wrapFields(ErrAuthenticationFailed, value("account", account))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrPlayerDuplicated(account any, msg ...string) error {
	err := wrapFields(ErrPlayerDuplicated, value("account", account))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Hall / room related

func WrapErrPlayerNotRegistered(account any, msg ...string) error {
	err := wrapFields(ErrPlayerNotRegistered, value("account", account))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrRoomIndexInvalid(index, roomCount any, msg ...string) error {
	err := wrapFields(ErrRoomIndexInvalid,
		value("index", index),
		value("rooms", roomCount),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrRoomNotCleared(index any, msg ...string) error {
	err := wrapFields(ErrRoomNotCleared, value("index", index))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrRoomFull(index any, msg ...string) error {
	err := wrapFields(ErrRoomFull, value("index", index))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Session related

func WrapErrConnectionLost(account any, cause error, msg ...string) error {
	err := wrapFields(ErrConnectionLost, value("account", account))
	if cause != nil {
		err = errors.Wrap(err, cause.Error())
	}
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrCommandUnrecognized(command any, msg ...string) error {
	err := wrapFields(ErrCommandUnrecognized, value("command", command))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrHeartbeatAttachFailed(account any, msg ...string) error {
	err := wrapFields(ErrHeartbeatAttachFailed, value("account", account))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrPlayerStateTransition(from, to any, msg ...string) error {
	err := wrapFields(ErrPlayerStateTransition,
		value("from", from),
		value("to", to),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrGuessMalformed(input any, msg ...string) error {
	err := wrapFields(ErrGuessMalformed, value("input", input))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrHandshakeUnrecognized(header any, msg ...string) error {
	err := wrapFields(ErrHandshakeUnrecognized, value("header", header))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Credential store related

func WrapErrCredentialFileNotFound(path any, msg ...string) error {
	err := wrapFields(ErrCredentialFileNotFound, value("path", path))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrCredentialMalformed(path, line any, msg ...string) error {
	err := wrapFields(ErrCredentialMalformed,
		value("path", path),
		value("line", line),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func wrapFields(err hallError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
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
		name:  name,
		value: value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}
