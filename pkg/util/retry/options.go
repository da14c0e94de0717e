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

import "time"

type config struct {
	attempts uint
	sleep    time.Duration
	maxSleep time.Duration
	retryAll bool
}

func newDefaultConfig() *config {
	return &config{
		attempts: 10,
		sleep:    200 * time.Millisecond,
		maxSleep: 3 * time.Second,
	}
}

// Option 用于配置重试行为的选项函数。
type Option func(*config)

// Attempts 设置最大尝试次数（包含第一次执行）。
// 传 0 表示不限次数，仅受 ctx 约束。
func Attempts(attempts uint) Option {
	return func(c *config) {
		c.attempts = attempts
	}
}

// Sleep 设置初始退避间隔。
func Sleep(sleep time.Duration) Option {
	return func(c *config) {
		c.sleep = sleep
		// 保证最大间隔不小于初始间隔。
		if c.sleep > c.maxSleep {
			c.maxSleep = c.sleep
		}
	}
}

// MaxSleepTime 设置最大退避间隔。
func MaxSleepTime(maxSleep time.Duration) Option {
	return func(c *config) {
		if maxSleep < c.sleep {
			c.maxSleep = c.sleep
		} else {
			c.maxSleep = maxSleep
		}
	}
}

// RetryAll 设置对所有错误均进行重试，忽略可重试标记。
func RetryAll() Option {
	return func(c *config) {
		c.retryAll = true
	}
}
