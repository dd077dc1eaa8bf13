// Package pubsub adapts the in-process message bus to the group fan-out the
// rest of the service speaks. Every group maps to one topic; whatever is
// published there is an encoded protocol frame ready to hit a socket.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/quickroom/room-service/internal/protocol"
)

// GroupBus is the transport contract the dispatcher and broadcaster share.
// Handlers stay agnostic of the bus implementation behind it.
type GroupBus interface {
	PublishFrame(ctx context.Context, groupID int32, frame *protocol.Frame) error
	Subscribe(ctx context.Context, groupID int32) (<-chan *message.Message, error)
	Close() error
}

type groupBus struct {
	pubsub *gochannel.GoChannel
}

var _ GroupBus = (*groupBus)(nil)

// NewGroupBus builds the bus over an in-process Pub/Sub. Subscriber channels
// are buffered so one stalled consumer does not pause publishers.
func NewGroupBus(logger watermill.LoggerAdapter) GroupBus {
	return &groupBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, logger),
	}
}

// Topic names the per-group routing key.
func Topic(groupID int32) string {
	return fmt.Sprintf("group.%d", groupID)
}

func (b *groupBus) PublishFrame(ctx context.Context, groupID int32, frame *protocol.Frame) error {
	if frame == nil {
		return fmt.Errorf("group bus: cannot publish nil frame")
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("group bus: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(Topic(groupID), msg); err != nil {
		return fmt.Errorf("group bus: failed to publish to topic %s: %w", Topic(groupID), err)
	}
	return nil
}

func (b *groupBus) Subscribe(ctx context.Context, groupID int32) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic(groupID))
}

func (b *groupBus) Close() error {
	return b.pubsub.Close()
}
