//go:build integration

package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fintrust/internal/scoring/worker"
	"fintrust/pkg/platform/sentinel"
	"fintrust/pkg/testutil/containers"
)

type RedisWorkerSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisWorkerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisWorkerSuite))
}

func (s *RedisWorkerSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *RedisWorkerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisWorkerSuite) TestQueueIsFIFO() {
	ctx := context.Background()
	q := worker.NewRedisQueue(s.redis.Client, worker.WithPollWindow(100*time.Millisecond))

	s.Require().NoError(q.Enqueue(ctx, "a1"))
	s.Require().NoError(q.Enqueue(ctx, "a2"))

	first, err := q.Dequeue(ctx)
	s.Require().NoError(err)
	second, err := q.Dequeue(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"a1", "a2"}, []string{first, second})
}

func (s *RedisWorkerSuite) TestDequeueStopsOnCancel() {
	q := worker.NewRedisQueue(s.redis.Client, worker.WithPollWindow(100*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	s.Error(err)
}

func (s *RedisWorkerSuite) TestLockIsExclusiveUntilReleased() {
	ctx := context.Background()
	l := worker.NewRedisLocker(s.redis.Client, time.Minute)

	release, err := l.Acquire(ctx, "app-1")
	s.Require().NoError(err)

	_, err = l.Acquire(ctx, "app-1")
	s.ErrorIs(err, sentinel.ErrLocked)

	other, err := l.Acquire(ctx, "app-2")
	s.Require().NoError(err)
	other()

	release()
	again, err := l.Acquire(ctx, "app-1")
	s.Require().NoError(err)
	again()
}

func (s *RedisWorkerSuite) TestLockExpires() {
	ctx := context.Background()
	l := worker.NewRedisLocker(s.redis.Client, 200*time.Millisecond)

	_, err := l.Acquire(ctx, "app-1")
	s.Require().NoError(err)

	s.Eventually(func() bool {
		release, err := l.Acquire(ctx, "app-1")
		if err != nil {
			return false
		}
		release()
		return true
	}, 2*time.Second, 50*time.Millisecond)
}
