package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"golang.org/x/sync/errgroup"

	"github.com/quickroom/room-service/internal/adapter/pubsub"
	"github.com/quickroom/room-service/internal/domain/registry"
	"github.com/quickroom/room-service/internal/protocol"
	"github.com/quickroom/room-service/internal/storage"
)

// Broadcaster owns the per-group topics. Publishing a frame to a group lazily
// starts a consumer for its topic; the consumer resolves the current
// participant set on every frame and routes the payload at each user's cell.
// Membership changes therefore take effect on the very next frame.
type Broadcaster struct {
	bus    pubsub.GroupBus
	hub    registry.Hubber
	store  storage.Store
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	tasks  *errgroup.Group

	mu     sync.Mutex
	topics map[int32]context.CancelFunc
}

func NewBroadcaster(bus pubsub.GroupBus, hub registry.Hubber, store storage.Store, logger *slog.Logger) *Broadcaster {
	ctx, cancel := context.WithCancel(context.Background())
	tasks, tctx := errgroup.WithContext(ctx)
	return &Broadcaster{
		bus:    bus,
		hub:    hub,
		store:  store,
		logger: logger,
		ctx:    tctx,
		cancel: cancel,
		tasks:  tasks,
		topics: map[int32]context.CancelFunc{},
	}
}

// Publish persists nothing: the caller has already written to the store. It
// only makes the frame visible to every participant's live sessions.
func (b *Broadcaster) Publish(ctx context.Context, groupID int32, frame *protocol.Frame) error {
	if err := b.EnsureGroup(groupID); err != nil {
		return err
	}
	return b.bus.PublishFrame(ctx, groupID, frame)
}

// EnsureGroup guarantees a running consumer for the group topic.
func (b *Broadcaster) EnsureGroup(groupID int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.topics[groupID]; ok {
		return nil
	}
	tctx, tcancel := context.WithCancel(b.ctx)
	ch, err := b.bus.Subscribe(tctx, groupID)
	if err != nil {
		tcancel()
		return err
	}
	b.topics[groupID] = tcancel
	b.tasks.Go(func() error {
		b.consume(tctx, groupID, ch)
		return nil
	})
	return nil
}

// ReleaseGroup tears the topic consumer down, typically when the group is
// deleted. Frames already in flight drain first.
func (b *Broadcaster) ReleaseGroup(groupID int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cancel, ok := b.topics[groupID]; ok {
		cancel()
		delete(b.topics, groupID)
	}
}

func (b *Broadcaster) consume(ctx context.Context, groupID int32, ch <-chan *message.Message) {
	for msg := range ch {
		ids, err := b.store.ParticipantsOf(ctx, groupID)
		if err != nil {
			b.logger.Error("failed to resolve participants for broadcast",
				"group_id", groupID, "error", err)
			msg.Ack()
			continue
		}
		delivered := 0
		for _, id := range ids {
			if b.hub.Broadcast(id, msg.Payload) {
				delivered++
			}
		}
		b.logger.Debug("frame fanned out", "group_id", groupID, "recipients", delivered)
		msg.Ack()
	}
}

// Shutdown stops every consumer and waits for them to drain.
func (b *Broadcaster) Shutdown() {
	b.cancel()
	_ = b.tasks.Wait()
}
