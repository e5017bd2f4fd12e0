package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/models"
	"github.com/ardiwinata/nobar/internal/observability"
)

// Bridge fans broadcasts out across gateway instances. The Redis cache
// implements it; nil means single-instance delivery only.
type Bridge interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) *redis.PubSub
}

// Subscriber is one connection's view of an event channel. Messages the
// subscriber cannot drain in time are dropped rather than blocking the hub.
type Subscriber struct {
	ID string
	C  <-chan models.ChatMessage

	ch chan models.ChatMessage
}

type eventChannel struct {
	subscribers map[string]*Subscriber
	pubsub      *redis.PubSub
	cancel      context.CancelFunc
}

// Hub is the per-event broadcast registry. Channels are created on first use
// and live until CloseAll; subscribers come and go underneath them.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]*eventChannel
	closed   bool

	bridge     Bridge
	instanceID string
	logger     *zap.Logger
}

// bridgeEnvelope wraps messages on the cross-instance channel so an instance
// can skip its own publications.
type bridgeEnvelope struct {
	Instance string             `json:"instance"`
	Message  models.ChatMessage `json:"message"`
}

func NewHub(bridge Bridge, logger *zap.Logger) *Hub {
	return &Hub{
		channels:   make(map[string]*eventChannel),
		bridge:     bridge,
		instanceID: uuid.NewString(),
		logger:     logger,
	}
}

func bridgeChannelName(eventID string) string {
	return fmt.Sprintf("chat:%s", eventID)
}

// Join subscribes a new connection to the event's channel, creating the
// channel on first use.
func (h *Hub) Join(eventID string) *Subscriber {
	sub := &Subscriber{
		ID: uuid.NewString(),
		ch: make(chan models.ChatMessage, 32),
	}
	sub.C = sub.ch

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.ch)
		return sub
	}

	ec, ok := h.channels[eventID]
	if !ok {
		ec = &eventChannel{subscribers: make(map[string]*Subscriber)}
		h.channels[eventID] = ec
		observability.ChatChannelsGauge.Set(float64(len(h.channels)))
		if h.bridge != nil {
			h.startBridge(eventID, ec)
		}
	}
	ec.subscribers[sub.ID] = sub
	return sub
}

// Leave detaches a subscriber. The channel itself stays registered; the
// registry only shrinks on CloseAll.
func (h *Hub) Leave(eventID string, sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ec, ok := h.channels[eventID]
	if !ok {
		return
	}
	if _, ok := ec.subscribers[sub.ID]; !ok {
		return
	}
	delete(ec.subscribers, sub.ID)
	close(sub.ch)
}

// Broadcast fans a message out to every subscriber on the event's channel
// except the sender, then publishes it on the cross-instance bridge.
func (h *Hub) Broadcast(ctx context.Context, eventID string, msg models.ChatMessage, senderID string) {
	h.deliverLocal(eventID, msg, senderID)

	if h.bridge == nil {
		return
	}
	payload, err := json.Marshal(bridgeEnvelope{Instance: h.instanceID, Message: msg})
	if err != nil {
		h.logger.Warn("bridge envelope marshal failed", zap.Error(err))
		return
	}
	if err := h.bridge.Publish(ctx, bridgeChannelName(eventID), payload); err != nil {
		h.logger.Warn("bridge publish failed", zap.String("event_id", eventID), zap.Error(err))
	}
}

func (h *Hub) deliverLocal(eventID string, msg models.ChatMessage, senderID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ec, ok := h.channels[eventID]
	if !ok {
		return
	}
	for id, sub := range ec.subscribers {
		if id == senderID {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			h.logger.Warn("dropping message for slow subscriber",
				zap.String("event_id", eventID),
				zap.String("subscriber_id", id),
			)
		}
	}
}

// startBridge consumes the event's cross-instance channel and re-delivers
// remote messages locally. Caller holds the lock.
func (h *Hub) startBridge(eventID string, ec *eventChannel) {
	ctx, cancel := context.WithCancel(context.Background())
	ec.cancel = cancel
	ec.pubsub = h.bridge.Subscribe(ctx, bridgeChannelName(eventID))

	go func() {
		for {
			m, err := ec.pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				h.logger.Warn("bridge receive failed", zap.String("event_id", eventID), zap.Error(err))
				return
			}

			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				h.logger.Warn("bridge envelope unmarshal failed", zap.Error(err))
				continue
			}
			if env.Instance == h.instanceID {
				continue
			}
			// Remote messages have no local sender to exclude.
			h.deliverLocal(eventID, env.Message, "")
		}
	}()
}

// CloseAll tears down every channel and subscriber. The hub refuses new
// subscriptions afterwards; this is the shutdown path.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for eventID, ec := range h.channels {
		if ec.cancel != nil {
			ec.cancel()
		}
		if ec.pubsub != nil {
			if err := ec.pubsub.Close(); err != nil {
				h.logger.Warn("bridge close failed", zap.String("event_id", eventID), zap.Error(err))
			}
		}
		for _, sub := range ec.subscribers {
			close(sub.ch)
		}
	}
	h.channels = make(map[string]*eventChannel)
	observability.ChatChannelsGauge.Set(0)
}
