package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/templodoabismo/pluma/internal/domain"
)

// ManifestationChannel is the redis pub/sub channel for replaced manifestations.
const ManifestationChannel = "pluma:manifestations"

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) PublishManifestation(ctx context.Context, event domain.ManifestationEvent) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal manifestation event")
	}

	err = s.rdb.Publish(ctx, ManifestationChannel, jsonstr).Err()
	if err != nil {
		return errors.Wrap(err, "failed to publish manifestation event")
	}

	return nil
}

// Subscription delivers manifestation events until it is closed.
type Subscription struct {
	pubsub *redis.PubSub
	events chan domain.ManifestationEvent
	done   chan struct{}
}

// Subscribe returns once redis has confirmed the subscription, so events
// published after it returns are never missed.
func (s *SignalService) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, ManifestationChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, errors.Wrap(err, "failed to subscribe")
	}

	sub := &Subscription{
		pubsub: pubsub,
		events: make(chan domain.ManifestationEvent, 16),
		done:   make(chan struct{}),
	}
	go sub.pump(ctx)
	return sub, nil
}

func (s *Subscription) Events() <-chan domain.ManifestationEvent {
	return s.events
}

func (s *Subscription) Close() error {
	err := s.pubsub.Close()
	<-s.done
	return err
}

func (s *Subscription) pump(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)

	for msg := range s.pubsub.Channel() {
		var event domain.ManifestationEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			slog.WarnContext(ctx, "dropping malformed manifestation event",
				slog.String("error", err.Error()),
				slog.String("module", "signal"),
			)
			continue
		}
		select {
		case s.events <- event:
		default:
			slog.WarnContext(ctx, "subscriber is lagging, dropping event",
				slog.String("slot", string(event.Manifestation.Slot)),
				slog.String("module", "signal"),
			)
		}
	}
}
