package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// observerBuffer is the per-observer channel depth. A slow observer whose
// buffer is full has messages dropped rather than blocking the publisher.
const observerBuffer = 16

// Message is one event pushed to live observers.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ObserverHub is the publish/subscribe surface for live admin observers.
// Publication returns immediately; delivery to any one observer never blocks
// or fails delivery to others. Every message is additionally mirrored to a
// Redis pub/sub channel so out-of-process dashboards can attach.
type ObserverHub struct {
	logger  *zap.Logger
	redis   *redis.Client
	channel string

	mu        sync.RWMutex
	observers map[string]chan Message
}

// NewObserverHub creates a hub mirroring to the given Redis channel. The
// Redis client may be nil, in which case only in-process observers are
// served.
func NewObserverHub(logger *zap.Logger, redisClient *redis.Client, channel string) *ObserverHub {
	return &ObserverHub{
		logger:    logger,
		redis:     redisClient,
		channel:   channel,
		observers: make(map[string]chan Message),
	}
}

// Subscribe registers an observer and returns its delivery channel.
func (h *ObserverHub) Subscribe(id string) <-chan Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Message, observerBuffer)
	h.observers[id] = ch
	return ch
}

// Unsubscribe removes an observer and closes its channel.
func (h *ObserverHub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.observers[id]; ok {
		close(ch)
		delete(h.observers, id)
	}
}

// Broadcast publishes a message to all currently connected observers and the
// Redis mirror. It never blocks on a slow observer.
func (h *ObserverHub) Broadcast(msg Message) {
	h.mu.RLock()
	for id, ch := range h.observers {
		select {
		case ch <- msg:
		default:
			h.logger.Debug("dropping broadcast for slow observer", zap.String("observer", id))
		}
	}
	h.mu.RUnlock()

	if h.redis == nil {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode broadcast message", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.redis.Publish(ctx, h.channel, data).Err(); err != nil {
		h.logger.Warn("failed to mirror broadcast to redis", zap.Error(err))
	}
}

// ObserverCount reports the number of connected in-process observers.
func (h *ObserverHub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}
