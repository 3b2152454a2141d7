//go:build integration

package redisbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cashless/internal/coherence"
	"cashless/internal/coherence/redisbus"
	"cashless/pkg/testutil/containers"
)

type RedisBusSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisBusSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBusSuite))
}

func (s *RedisBusSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *RedisBusSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBusSuite) next(ch <-chan coherence.Message) coherence.Message {
	select {
	case m, ok := <-ch:
		s.Require().True(ok, "subscription closed")
		return m
	case <-time.After(5 * time.Second):
		s.FailNow("timed out waiting for broadcast")
		return coherence.Message{}
	}
}

func (s *RedisBusSuite) TestRelayFansOutToEverySubscriber() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := redisbus.New(s.redis.Client, "test:coherence")
	relayDone := make(chan error, 1)
	go func() { relayDone <- bus.RunRelay(ctx, "relay-1") }()

	a, err := bus.Subscribe(ctx)
	s.Require().NoError(err)
	b, err := bus.Subscribe(ctx)
	s.Require().NoError(err)

	start := coherence.Message{Kind: coherence.KindEventStart, Data: "e1"}
	change := coherence.Message{Kind: coherence.KindItemsChange, Data: "e1"}
	s.Require().NoError(bus.Publish(ctx, start))
	s.Require().NoError(bus.Publish(ctx, change))

	s.Equal(start, s.next(a))
	s.Equal(change, s.next(a))
	s.Equal(start, s.next(b))
	s.Equal(change, s.next(b))

	cancel()
	s.NoError(<-relayDone)
}

func (s *RedisBusSuite) TestRelayDeliversEntriesPublishedWhileDown() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := redisbus.New(s.redis.Client, "test:coherence")
	sub, err := bus.Subscribe(ctx)
	s.Require().NoError(err)

	m := coherence.Message{Kind: coherence.KindPopulateData}
	s.Require().NoError(bus.Publish(ctx, m))

	go func() { _ = bus.RunRelay(ctx, "relay-1") }()
	s.Equal(m, s.next(sub))
}

func (s *RedisBusSuite) TestSubscriberStartsAtTail() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := redisbus.New(s.redis.Client, "test:coherence")
	go func() { _ = bus.RunRelay(ctx, "relay-1") }()

	early, err := bus.Subscribe(ctx)
	s.Require().NoError(err)
	old := coherence.Message{Kind: coherence.KindEventEnd, Data: "e0"}
	s.Require().NoError(bus.Publish(ctx, old))
	s.Equal(old, s.next(early))

	late, err := bus.Subscribe(ctx)
	s.Require().NoError(err)
	fresh := coherence.Message{Kind: coherence.KindEventStart, Data: "e1"}
	s.Require().NoError(bus.Publish(ctx, fresh))
	s.Equal(fresh, s.next(late))
}
