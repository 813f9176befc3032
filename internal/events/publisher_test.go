package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/changeset"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

func TestBrokerPublisherPublishesToRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	publisher := NewBrokerPublisher(client, nil, "marketplace")
	require.Equal(t, "marketplace:events", publisher.Channel())

	sub := client.Subscribe(ctx, publisher.Channel())
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	changes := changeset.ChangeSet{models.FieldTitle: {Old: "A", New: "B"}}
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, publisher.Publish(ctx, OpportunityEdited(42, changes, at)))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var received Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &received))
	require.NotEmpty(t, received.ID)
	require.Equal(t, KindOpportunityEdited, received.Kind)
	require.Equal(t, uint(42), received.SubjectID)
	require.Equal(t, changes, received.Changes)
	require.True(t, at.Equal(received.OccurredAt))
}

func TestBrokerPublisherReportsTransportFailure(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	server.Close()

	publisher := NewBrokerPublisher(client, nil, "marketplace")
	err = publisher.Publish(context.Background(), OpportunityEdited(1, nil, time.Now()))
	require.Error(t, err)
}

func TestBrokerPublisherWithoutTransportsIsNoop(t *testing.T) {
	publisher := NewBrokerPublisher(nil, nil, "")
	require.Empty(t, publisher.Subject(KindEvidenceApproved))
	require.NoError(t, publisher.Publish(context.Background(), OpportunityEdited(1, nil, time.Now())))
}

func TestSubjectPerKind(t *testing.T) {
	publisher := NewBrokerPublisher(nil, nil, "marketplace:prod")
	require.Equal(t, "marketplace.prod.events.evidence-rejected", publisher.Subject(KindEvidenceRejected))
}

func TestAssessedEventKind(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	approved := Assessed(models.AssessmentOutcome{EvidenceID: 3, Status: models.OutcomeApproved, ActionedAt: at})
	require.Equal(t, KindEvidenceApproved, approved.Kind)
	require.Equal(t, uint(3), approved.SubjectID)
	require.Equal(t, at, approved.OccurredAt)

	rejected := Assessed(models.AssessmentOutcome{EvidenceID: 3, Status: models.OutcomeRejected})
	require.Equal(t, KindEvidenceRejected, rejected.Kind)
	require.NotNil(t, rejected.Outcome)
}
