//go:build integration

package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docufind/internal/jobs"
	"docufind/internal/platform/config"
	"docufind/pkg/testutil/containers"
)

type KafkaBrokerSuite struct {
	suite.Suite
	brokers []string
}

func TestKafkaBrokerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaBrokerSuite))
}

func (s *KafkaBrokerSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

func (s *KafkaBrokerSuite) newBroker(topic string) *jobs.KafkaBroker {
	b, err := jobs.NewKafkaBroker(config.KafkaConfig{
		Brokers:       s.brokers,
		Topic:         topic,
		ConsumerGroup: topic + "-workers",
	}, nil)
	s.Require().NoError(err)
	s.Require().NoError(b.EnsureTopic(context.Background(), 1))
	s.Require().NoError(b.EnsureTopic(context.Background(), 1), "second call tolerates an existing topic")
	return b
}

func (s *KafkaBrokerSuite) TestRoundTrip() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b := s.newBroker("jobs-roundtrip")
	defer b.Close()

	job, err := jobs.New(jobs.KindMatchRecord, map[string]string{"report_id": "abc"})
	s.Require().NoError(err)
	s.Require().NoError(b.Enqueue(ctx, job))

	d, err := b.Next(ctx)
	s.Require().NoError(err)
	d.Ack()

	s.Equal(job.ID, d.Job.ID)
	s.Equal(jobs.KindMatchRecord, d.Job.Kind)
	var payload map[string]string
	s.Require().NoError(d.Job.Decode(&payload))
	s.Equal("abc", payload["report_id"])
}

func (s *KafkaBrokerSuite) TestPoolDrainsKafka() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b := s.newBroker("jobs-pool")
	defer b.Close()

	handled := make(chan string, 3)
	pool := jobs.NewPool(b, jobs.WithWorkers(2))
	pool.Register(jobs.KindSendEmail, jobs.HandlerFunc(func(_ context.Context, j jobs.Job) error {
		handled <- j.ID
		return nil
	}))

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- pool.Run(runCtx) }()

	want := map[string]bool{}
	for i := 0; i < 3; i++ {
		job, err := jobs.New(jobs.KindSendEmail, map[string]int{"n": i})
		s.Require().NoError(err)
		want[job.ID] = true
		s.Require().NoError(b.Enqueue(ctx, job))
	}
	for i := 0; i < 3; i++ {
		select {
		case id := <-handled:
			s.True(want[id])
		case <-ctx.Done():
			s.FailNow("timed out waiting for jobs")
		}
	}
	stop()
	s.NoError(<-done)
}
