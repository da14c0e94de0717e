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

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Authentication related
	// 客户端可重试：重新提交一组凭据即可。
	ErrAuthenticationFailed = newHallError("authentication failed", 100, true)
	// 同名账号已在线，按认证失败处理并让客户端重试。
	ErrPlayerDuplicated = newHallError("player already online", 101, true)

	// Hall / room related
	ErrPlayerNotRegistered = newHallError("player not registered in hall", 200, false)
	ErrRoomIndexInvalid    = newHallError("room index out of range", 201, true)
	ErrRoomFull            = newHallError("room is full", 202, true)
	ErrRoomNotCleared      = newHallError("room not cleared after game", 203, false)

	// Session related
	// 传输层错误不重试，由持有连接的线程负责注销与清理。
	ErrConnectionLost        = newHallError("connection lost", 300, false)
	ErrCommandUnrecognized   = newHallError("unrecognized command", 301, true)
	ErrHeartbeatAttachFailed = newHallError("heartbeat channel not attached", 302, false)
	ErrPlayerStateTransition = newHallError("illegal player state transition", 303, false)
	ErrGuessMalformed        = newHallError("malformed guess", 304, true)
	ErrHandshakeUnrecognized = newHallError("unrecognized connection header", 305, false)

	// Credential store related
	ErrCredentialFileNotFound = newHallError("credential file not found", 400, false)
	ErrCredentialMalformed    = newHallError("malformed credential line", 401, false)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to hallError
	errUnexpected = newHallError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*hallError)

func WithDetail(detail string) errorOption {
	return func(err *hallError) {
		err.detail = detail
	}
}

type hallError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
}

func newHallError(msg string, code int32, retriable bool, options ...errorOption) hallError {
	err := hallError{
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

func (e hallError) code() int32 {
	return e.errCode
}

func (e hallError) Error() string {
	return e.msg
}

func (e hallError) Detail() string {
	return e.detail
}

func (e hallError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(hallError); ok {
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
	// To make merr work for multi errors,
	// we need cause of multi errors, which defined as the last error
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
