// Copyright (C) 2019-2020 Zilliz. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License
// is distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express
// or implied. See the License for the specific language governing permissions and limitations under the License.

package retry

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/guess-hall-go/pkg/util/merr"
)

type RetrySuite struct {
	suite.Suite
}

func (s *RetrySuite) TestSucceedsFirstTry() {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return nil
	})
	s.NoError(err)
	s.Equal(1, calls)
}

func (s *RetrySuite) TestRetriesTransientError() {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient network error")
		}
		return nil
	}, Attempts(5), Sleep(time.Millisecond))
	s.NoError(err)
	s.Equal(3, calls)
}

func (s *RetrySuite) TestStopsOnNonRetryable() {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return merr.WrapErrPlayerNotRegistered("alice")
	}, Attempts(5), Sleep(time.Millisecond))
	s.ErrorIs(err, merr.ErrPlayerNotRegistered)
	s.Equal(1, calls)
}

func (s *RetrySuite) TestRetriesRetryableHallError() {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return merr.WrapErrRoomFull(0)
	}, Attempts(3), Sleep(time.Millisecond))
	s.ErrorIs(err, merr.ErrRoomFull)
	s.Equal(3, calls)
}

func (s *RetrySuite) TestContextCanceled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func() error {
		return errors.New("never succeeds")
	})
	s.ErrorIs(err, context.Canceled)
}

func (s *RetrySuite) TestRetryAllForcesRetry() {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return merr.WrapErrPlayerNotRegistered("alice")
	}, Attempts(3), Sleep(time.Millisecond), RetryAll())
	s.Error(err)
	s.Equal(3, calls)
}

func TestRetry(t *testing.T) {
	suite.Run(t, new(RetrySuite))
}
