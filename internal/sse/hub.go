package sse

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/greg-maceachern12/binder-sub000/internal/logger"
)

type SSEEvent string

const (
	SSEEventSyllabusCreated SSEEvent = "SyllabusCreated"
	SSEEventLessonGenerated SSEEvent = "LessonGenerated"
	SSEEventRunProgress     SSEEvent = "RunProgress"
	SSEEventRunFailed       SSEEvent = "RunFailed"
	SSEEventRunCompleted    SSEEvent = "RunCompleted"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

type SSEClient struct {
	ID       uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
}

func (c *SSEClient) Done() <-chan struct{} { return c.done }

type SSEHub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*SSEClient]bool
	relay         func(SSEMessage)
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		log:           log.With("component", "SSEHub"),
		subscriptions: make(map[string]map[*SSEClient]bool),
	}
}

func (hub *SSEHub) NewSSEClient() *SSEClient {
	return &SSEClient{
		ID:       uuid.New(),
		Channels: make(map[string]bool),
		Outbound: make(chan SSEMessage, 16),
		done:     make(chan struct{}),
	}
}

func (hub *SSEHub) AddChannel(client *SSEClient, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}

	client.Channels[channel] = true

	clients, exists := hub.subscriptions[channel]
	if !exists {
		clients = make(map[*SSEClient]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true

	hub.log.Debug("SSE client subscribed", "clientID", client.ID, "channel", channel)
}

func (hub *SSEHub) RemoveChannel(client *SSEClient, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	delete(client.Channels, channel)

	if clients, exists := hub.subscriptions[channel]; exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(hub.subscriptions, channel)
		}
	}
}

func (hub *SSEHub) RemoveClient(client *SSEClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for channel := range client.Channels {
		if clients, exists := hub.subscriptions[channel]; exists {
			delete(clients, client)
			if len(clients) == 0 {
				delete(hub.subscriptions, channel)
			}
		}
	}
	select {
	case <-client.done:
	default:
		close(client.done)
	}
}

// SetRelay registers a cross-instance publisher invoked for every locally
// produced message. Messages arriving FROM the relay go through
// BroadcastLocal so they are not re-published.
func (hub *SSEHub) SetRelay(relay func(SSEMessage)) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.relay = relay
}

// Broadcast delivers msg to every client subscribed to its channel and hands
// it to the relay when one is set. Slow clients are skipped rather than
// blocking the sender.
func (hub *SSEHub) Broadcast(msg SSEMessage) {
	hub.BroadcastLocal(msg)

	hub.mu.RLock()
	relay := hub.relay
	hub.mu.RUnlock()
	if relay != nil {
		relay(msg)
	}
}

// BroadcastLocal delivers msg to subscribers on this instance only.
func (hub *SSEHub) BroadcastLocal(msg SSEMessage) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	clients, exists := hub.subscriptions[msg.Channel]
	if !exists {
		return
	}
	for client := range clients {
		select {
		case client.Outbound <- msg:
		default:
			hub.log.Warn("SSE client outbound full, dropping message", "clientID", client.ID, "channel", msg.Channel)
		}
	}
}
