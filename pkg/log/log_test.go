// Copyright 2019 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/uber/jaeger-client-go/utils"
)

type RateLimiterSuite struct {
	suite.Suite
}

func (s *RateLimiterSuite) TearDownTest() {
	// 恢复默认限流器，避免影响其他用例。
	_globalR.Store(rateLimiterHolder{limiter: nopRateLimiter{}})
}

func (s *RateLimiterSuite) TestDisabledByDefault() {
	configureRateLimiterFromEnv()

	_, ok := R().(nopRateLimiter)
	s.True(ok)
	s.True(R().CheckCredit(1))
}

func (s *RateLimiterSuite) TestEnableViaEnv() {
	// 先后写入 nop 与真实限流器：两者动态类型不同，
	// 必须经同一具体类型装箱后才能存入 atomic.Value。
	s.T().Setenv("GUESSHALL_LOG_RATE_ENABLE", "1")
	s.T().Setenv("GUESSHALL_LOG_RATE_CREDIT_PER_SECOND", "2.5")
	s.T().Setenv("GUESSHALL_LOG_RATE_MAX_BALANCE", "10")

	s.NotPanics(func() {
		configureRateLimiterFromEnv()
	})

	_, ok := R().(*utils.ReconfigurableRateLimiter)
	s.True(ok)

	// 再次按关闭配置回写，同样不得 panic。
	s.T().Setenv("GUESSHALL_LOG_RATE_ENABLE", "0")
	s.NotPanics(func() {
		configureRateLimiterFromEnv()
	})
	_, ok = R().(nopRateLimiter)
	s.True(ok)
}

func (s *RateLimiterSuite) TestEnvParsing() {
	s.T().Setenv("GUESSHALL_LOG_RATE_ENABLE", "garbage")
	s.False(getenvBool("GUESSHALL_LOG_RATE_ENABLE", false))

	s.T().Setenv("GUESSHALL_LOG_RATE_MAX_BALANCE", "not-a-number")
	s.Equal(60.0, getenvFloat("GUESSHALL_LOG_RATE_MAX_BALANCE", 60.0))
}

func TestRateLimiterConfig(t *testing.T) {
	suite.Run(t, new(RateLimiterSuite))
}
