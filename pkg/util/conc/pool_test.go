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

package conc

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type PoolSuite struct {
	suite.Suite
}

func (s *PoolSuite) TestSubmit() {
	pool := NewPool[int](4)
	defer pool.Release()

	future := pool.Submit(func() (int, error) {
		return 42, nil
	})
	val, err := future.Await()
	s.NoError(err)
	s.Equal(42, val)
}

func (s *PoolSuite) TestSubmitError() {
	pool := NewPool[int](4)
	defer pool.Release()

	expected := errors.New("task failed")
	future := pool.Submit(func() (int, error) {
		return 0, expected
	})
	_, err := future.Await()
	s.ErrorIs(err, expected)
}

func (s *PoolSuite) TestPanicConvertedToError() {
	pool := NewPool[int](4)
	defer pool.Release()

	future := pool.Submit(func() (int, error) {
		panic("boom")
	})
	_, err := future.Await()
	s.Error(err)
	s.Contains(err.Error(), "boom")
}

func (s *PoolSuite) TestAwaitIdempotent() {
	pool := NewPool[string](2)
	defer pool.Release()

	future := pool.Submit(func() (string, error) {
		return "done", nil
	})
	for i := 0; i < 3; i++ {
		val, err := future.Await()
		s.NoError(err)
		s.Equal("done", val)
	}
}

func (s *PoolSuite) TestAwaitAll() {
	pool := NewPool[int](4)
	defer pool.Release()

	ok := pool.Submit(func() (int, error) { return 1, nil })
	bad := pool.Submit(func() (int, error) { return 0, errors.New("bad") })

	s.NoError(AwaitAll(ok))
	s.Error(AwaitAll(ok, bad))
}

func TestPool(t *testing.T) {
	suite.Run(t, new(PoolSuite))
}
