package hall

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type GateSuite struct {
	suite.Suite
}

func (s *GateSuite) TestOpenUnblocksWait() {
	g := NewGate()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait(context.Background())
	}()

	g.Open()

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("wait not unblocked after open")
	}
}

func (s *GateSuite) TestOpenIdempotent() {
	g := NewGate()
	g.Open()
	g.Open()

	s.NoError(g.Wait(context.Background()))
}

func (s *GateSuite) TestWaitAfterOpenReturnsImmediately() {
	g := NewGate()
	g.Open()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.NoError(g.Wait(ctx))
}

func (s *GateSuite) TestResetClosesAgain() {
	g := NewGate()
	g.Open()
	g.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.ErrorIs(g.Wait(ctx), context.DeadlineExceeded)

	g.Open()
	s.NoError(g.Wait(context.Background()))
}

func (s *GateSuite) TestResetOnClosedGateIsNoop() {
	g := NewGate()
	g.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.ErrorIs(g.Wait(ctx), context.DeadlineExceeded)
}

func (s *GateSuite) TestWaitCancellation() {
	g := NewGate()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.ErrorIs(g.Wait(ctx), context.Canceled)
}

func (s *GateSuite) TestOpenWakesAllWaiters() {
	g := NewGate()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = g.Wait(context.Background())
		}(i)
	}

	g.Open()
	wg.Wait()
	for _, err := range errs {
		s.NoError(err)
	}
}

func TestGate(t *testing.T) {
	suite.Run(t, new(GateSuite))
}
