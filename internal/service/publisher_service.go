package service

import (
	"context"

	"ai-docguard-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IPublisherService interface {
	Publish(ctx context.Context, event events.Event) error
}

type publisherService struct {
	topicName string
	pubSub    *gochannel.GoChannel
}

func NewPublisherService(topicName string, pubSub *gochannel.GoChannel) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

func (ps *publisherService) Publish(ctx context.Context, event events.Event) error {
	payload, err := events.Encode(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(event.EventID(), payload)
	msg.Metadata.Set("event_type", event.EventType())
	msg.Metadata.Set("session_id", event.SessionID())
	msg.SetContext(ctx)

	return ps.pubSub.Publish(ps.topicName, msg)
}

// NewEventBus is the in-process bus shared by the publisher and consumer services.
func NewEventBus(bufferSize int64, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: bufferSize},
		logger,
	)
}
