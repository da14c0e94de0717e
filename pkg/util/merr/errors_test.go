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
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrRoomFull(3)
	errors.Wrap(err, "failed to enter room")
	s.ErrorIs(err, ErrRoomFull)
	s.Equal(Code(ErrRoomFull), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))

	sameCodeErr := newHallError("new error", ErrRoomFull.errCode, false)
	s.True(sameCodeErr.Is(ErrRoomFull))
}

func (s *ErrSuite) TestWrap() {
	// 认证相关错误。
	s.ErrorIs(WrapErrAuthenticationFailed("alice", "credential mismatch"), ErrAuthenticationFailed)
	s.ErrorIs(WrapErrPlayerDuplicated("alice", "already online"), ErrPlayerDuplicated)

	// 大厅与房间相关错误。
	s.ErrorIs(WrapErrPlayerNotRegistered("bob"), ErrPlayerNotRegistered)
	s.ErrorIs(WrapErrRoomIndexInvalid(42, 10, "out of range"), ErrRoomIndexInvalid)
	s.ErrorIs(WrapErrRoomFull(0, "two members already"), ErrRoomFull)
	s.ErrorIs(WrapErrRoomNotCleared(0), ErrRoomNotCleared)

	// 会话相关错误。
	s.ErrorIs(WrapErrConnectionLost("alice", errors.New("broken pipe")), ErrConnectionLost)
	s.ErrorIs(WrapErrCommandUnrecognized("hall_command:/fly"), ErrCommandUnrecognized)
	s.ErrorIs(WrapErrHeartbeatAttachFailed("alice", "timed out"), ErrHeartbeatAttachFailed)
	s.ErrorIs(WrapErrPlayerStateTransition("in_hall", "playing_game"), ErrPlayerStateTransition)
	s.ErrorIs(WrapErrGuessMalformed("maybe"), ErrGuessMalformed)
	s.ErrorIs(WrapErrHandshakeUnrecognized("Header:unknown"), ErrHandshakeUnrecognized)

	// 凭据相关错误。
	s.ErrorIs(WrapErrCredentialFileNotFound("/tmp/none.txt"), ErrCredentialFileNotFound)
	s.ErrorIs(WrapErrCredentialMalformed("/tmp/cred.txt", 3), ErrCredentialMalformed)
}

func (s *ErrSuite) TestRetryable() {
	s.True(IsRetryableErr(WrapErrAuthenticationFailed("alice")))
	s.True(IsRetryableErr(WrapErrRoomFull(0)))
	s.True(IsRetryableErr(WrapErrRoomIndexInvalid(99, 10)))
	s.True(IsRetryableErr(WrapErrCommandUnrecognized("bad")))

	s.False(IsRetryableErr(WrapErrConnectionLost("alice", errors.New("reset"))))
	s.False(IsRetryableErr(WrapErrPlayerNotRegistered("bob")))
	s.False(IsRetryableErr(errors.New("plain error")))
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	s.Equal("first: second", err.Error())
}

func (s *ErrSuite) TestCombineWithNil() {
	err := errors.New("non-nil")

	err = Combine(nil, err)
	s.NotNil(err)
}

func (s *ErrSuite) TestCombineOnlyNil() {
	err := Combine(nil, nil)
	s.Nil(err)
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
