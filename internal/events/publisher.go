package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// Publisher hands events to the notifier.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// BrokerPublisher publishes events to a redis channel and a NATS subject.
// Either transport may be nil.
type BrokerPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
}

// NewBrokerPublisher derives the redis channel and NATS subject from channelBase.
func NewBrokerPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string) *BrokerPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &BrokerPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
	}
}

// Channel returns the redis channel events are published on.
func (p *BrokerPublisher) Channel() string {
	return p.redisChannel
}

// Subject returns the NATS subject for an event kind.
func (p *BrokerPublisher) Subject(kind Kind) string {
	if p.natsSubject == "" {
		return ""
	}
	return p.natsSubject + "." + string(kind)
}

// Publish sends the event to every configured transport. A failure on one
// transport does not prevent delivery on the other.
func (p *BrokerPublisher) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.Source = p.nodeID

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.Subject(event.Kind), payload); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, event Event) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, Event) error { return nil })
