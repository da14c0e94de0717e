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

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/guess-hall-go/pkg/log"
	"github.com/lk2023060901/guess-hall-go/pkg/util/merr"
)

// Do 使用指数退避重试机制执行指定函数。
//
// 行为：
//   - fn 返回 nil 时立即成功返回；
//   - fn 返回不可重试错误（merr.IsRetryableErr 为 false 且非普通网络错误）时，
//     可通过 WithRetryAll 强制继续重试；
//   - ctx 取消或达到最大尝试次数后，返回最后一次的错误。
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	logger := log.Ctx(ctx)
	c := newDefaultConfig()

	for _, opt := range opts {
		opt(c)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.sleep
	bo.MaxInterval = c.maxSleep
	bo.MaxElapsedTime = 0 // 次数由 WithMaxRetries 控制，不额外限制总时长。
	var policy backoff.BackOff = backoff.WithContext(bo, ctx)
	if c.attempts > 0 {
		policy = backoff.WithMaxRetries(policy, uint64(c.attempts-1))
	}

	attempt := uint(0)
	wrapped := func() error {
		err := fn()
		if err == nil {
			return nil
		}

		attempt++
		if attempt%4 == 1 {
			logger.Warn("retry func failed",
				zap.Uint("retried", attempt-1),
				zap.Error(err))
		}

		if !c.retryAll && !isRecoverable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(wrapped, policy)
	if err != nil {
		// backoff.Permanent 的包装在返回前已被剥掉。
		return err
	}
	return nil
}

// isRecoverable 判断错误是否值得重试。
// 上下文取消/超时永远不重试；业务错误遵循 merr 的可重试标记；
// 其余（典型为网络 I/O 错误）默认重试。
func isRecoverable(err error) bool {
	if merr.IsCanceledOrTimeout(err) {
		return false
	}
	if errors.Is(err, merr.ErrConnectionLost) {
		return true
	}
	cause := errors.Cause(err)
	if _, ok := cause.(interface{ Detail() string }); ok {
		return merr.IsRetryableErr(err)
	}
	return true
}
