//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "giftexchange/pkg/platform/audit"
	"giftexchange/pkg/testutil/containers"
)

func TestPublisherProducesAuditEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	const topic = "giftexchange.audit.test"
	pub, err := New(rp.Brokers, topic)
	require.NoError(t, err)
	defer pub.Close()

	require.NoError(t, pub.EnsureTopic(ctx, 1, 1))
	// a second call sees TopicAlreadyExists and succeeds
	require.NoError(t, pub.EnsureTopic(ctx, 1, 1))
	require.NoError(t, pub.Ping(ctx))

	event := audit.Event{
		Category:  audit.CategoryExchange,
		Timestamp: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		Action:    string(audit.EventCycleGenerated),
		Subject:   "2025",
		Count:     14,
	}
	require.NoError(t, pub.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollRecords(ctx, 1)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "2025", string(rec.Key))
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, "action", rec.Headers[0].Key)
	assert.Equal(t, string(audit.EventCycleGenerated), string(rec.Headers[0].Value))

	var got audit.Event
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, event.Subject, got.Subject)
	assert.Equal(t, 14, got.Count)
}

func TestNewRejectsMissingConfig(t *testing.T) {
	_, err := New(nil, "topic")
	require.Error(t, err)
	_, err = New([]string{"localhost:9092"}, "")
	require.Error(t, err)
}
