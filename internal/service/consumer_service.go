package service

import (
	"context"
	"time"

	"ai-docguard-be/internal/entity"
	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/internal/repository"
	"ai-docguard-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const sinkTimeout = 5 * time.Second

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventForwarder ships events to an external broker.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

// SessionNotifier pushes a raw message to everyone watching a session.
type SessionNotifier interface {
	Publish(ctx context.Context, sessionID string, message []byte)
}

// ConsumerSinks are optional; nil fields are skipped.
type ConsumerSinks struct {
	Audit     logger.ILogger
	Events    repository.SessionEventRepository
	Forwarder EventForwarder
	Notifier  SessionNotifier
}

type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	sinks     ConsumerSinks
	logger    logger.ILogger
}

func NewConsumerService(pubSub *gochannel.GoChannel, topicName string, sinks ConsumerSinks, log logger.ILogger) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		sinks:     sinks,
		logger:    log,
	}
}

// Consume subscribes and processes messages in the background until ctx is done.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks: every sink is best effort and a redelivery would only repeat the same failure.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	event, err := events.Decode(msg.Payload)
	if err != nil {
		cs.logger.Error("Consumer", "Failed to decode event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err,
		})
		return
	}

	fields := map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"session_id": event.Session,
	}

	if cs.sinks.Audit != nil {
		cs.sinks.Audit.Info("Pipeline", event.Type, mergeDetails(fields, event.Data))
	}

	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	if cs.sinks.Events != nil {
		if err := cs.sinks.Events.Create(sinkCtx, toSessionEvent(event, msg.Payload)); err != nil {
			cs.logger.Error("Consumer", "Failed to store audit event", mergeDetails(fields, map[string]interface{}{"error": err}))
		}
	}

	if cs.sinks.Forwarder != nil {
		if err := cs.sinks.Forwarder.Publish(sinkCtx, event); err != nil {
			cs.logger.Warn("Consumer", "Failed to forward event", mergeDetails(fields, map[string]interface{}{"error": err.Error()}))
		}
	}

	if cs.sinks.Notifier != nil {
		cs.sinks.Notifier.Publish(sinkCtx, event.Session, msg.Payload)
	}
}

func toSessionEvent(event events.BaseEvent, raw []byte) *entity.SessionEvent {
	id, err := uuid.Parse(event.ID)
	if err != nil {
		id = uuid.New()
	}
	return &entity.SessionEvent{
		Id:         id,
		SessionId:  event.Session,
		EventType:  event.Type,
		Payload:    datatypes.JSON(raw),
		OccurredAt: event.OccurredAt,
	}
}

func mergeDetails(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range base {
		out[k] = v
	}
	return out
}
