package notify

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	EventTourPublished    = "tour.published"
	EventSessionCompleted = "session.completed"
)

// Event is the out-of-band signal consumed by notification workers and
// live subscribers. Cause is set for session.completed only.
type Event struct {
	Type      string    `json:"type"`
	TourID    string    `json:"tour_id"`
	VersionID string    `json:"version_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Cause     string    `json:"cause,omitempty"`
	At        time.Time `json:"at"`
}

type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	TourID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(tourID string) *Client {
	client := &Client{
		TourID: tourID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[tourID] == nil {
		h.clients[tourID] = map[*Client]struct{}{}
	}
	h.clients[tourID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if tourClients, ok := h.clients[client.TourID]; ok {
		delete(tourClients, client)
		if len(tourClients) == 0 {
			delete(h.clients, client.TourID)
		}
	}
	close(client.Send)
}

// Publish fans the event out to subscribers. With redis configured the
// event goes through the tour's channel and comes back via the pattern
// subscription, which is the single local delivery path; publishing
// locally as well would hand every in-process subscriber the frame
// twice. Without redis the hub delivers directly.
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify marshal error: %v", err)
		return
	}

	if h.redis == nil {
		h.broadcastLocal(event.TourID, payload)
		return
	}

	if err := h.redis.Publish(context.Background(), redisChannel(event.TourID), payload).Err(); err != nil {
		log.Printf("redis publish error: %v", err)
		// the subscription loop will not see the event, deliver locally
		h.broadcastLocal(event.TourID, payload)
	}
}

func (h *Hub) broadcastLocal(tourID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// non-blocking sends, so holding the lock here is fine
	for client := range h.clients[tourID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "tours:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.broadcastLocal(tourIDFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

func redisChannel(tourID string) string {
	return "tours:" + tourID + ":events"
}

func tourIDFromChannel(ch string) string {
	// tours:{tour}:events
	const prefix = "tours:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
