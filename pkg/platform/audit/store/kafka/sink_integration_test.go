//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "fintrust/pkg/platform/audit"
	"fintrust/pkg/platform/audit/store/kafka"
	"fintrust/pkg/testutil/containers"
)

func TestSinkProducesDecodableRecords(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	broker := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const topic = "fintrust.audit.test"
	sink, err := kafka.NewSink(broker.Brokers, topic)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.EnsureTopic(ctx, 1, 1))
	require.NoError(t, sink.EnsureTopic(ctx, 1, 1), "second call sees the existing topic")

	event := audit.Event{
		ID:         "evt-1",
		Category:   audit.CategoryCompliance,
		Timestamp:  time.Now().UTC().Truncate(time.Millisecond),
		SubjectID:  "subject-1",
		Resource:   "consent-1",
		Action:     string(audit.EventConsentGranted),
		Purpose:    "LOAN",
		Attributes: map[string]string{"origin_address": "10.0.0.1"},
	}
	require.NoError(t, sink.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)

	assert.Equal(t, "subject-1", string(records[0].Key))
	got, err := kafka.Decode(records[0].Value)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Action, got.Action)
	assert.Equal(t, event.Attributes, got.Attributes)
	assert.True(t, event.Timestamp.Equal(got.Timestamp))

	_, err = sink.ListBySubject(ctx, "subject-1")
	assert.ErrorIs(t, err, kafka.ErrReadUnsupported)
}
