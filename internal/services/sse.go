package services

import (
	"sync"
)

// Batch event types emitted during outreach generation
const (
	EventBatchStarted       = "batch_started"
	EventLeadStarted        = "lead_started"
	EventLeadSkipped        = "lead_skipped"
	EventLeadCompleted      = "lead_completed"
	EventLeadFailed         = "lead_failed"
	EventVariationStarted   = "variation_started"
	EventVariationCompleted = "variation_completed"
	EventVariationFailed    = "variation_failed"
	EventBatchCompleted     = "batch_completed"
)

// BatchEvent represents a real-time outreach generation progress update
type BatchEvent struct {
	Type        string   `json:"type"`
	BatchID     string   `json:"batch_id"`
	LeadID      uint     `json:"lead_id,omitempty"`
	CompanyName string   `json:"company_name,omitempty"`
	Channel     string   `json:"channel,omitempty"`
	Slot        int      `json:"slot,omitempty"`
	Done        int      `json:"done,omitempty"`
	Total       int      `json:"total,omitempty"`
	CostUSD     *float64 `json:"cost_usd,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// BatchHub manages SSE client connections and event broadcasting
type BatchHub struct {
	clients map[string]chan BatchEvent
	mu      sync.RWMutex
}

// NewBatchHub creates a new batch event hub instance
func NewBatchHub() *BatchHub {
	return &BatchHub{
		clients: make(map[string]chan BatchEvent),
	}
}

// Subscribe registers a new client and returns a channel for receiving events
func (h *BatchHub) Subscribe(clientID string) <-chan BatchEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Create buffered channel to prevent blocking
	ch := make(chan BatchEvent, 100)
	h.clients[clientID] = ch
	return ch
}

// Unsubscribe removes a client from the hub
func (h *BatchHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
}

// Publish broadcasts an event to all connected clients
func (h *BatchHub) Publish(event BatchEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		// Non-blocking send - drop event if client buffer is full
		select {
		case ch <- event:
		default:
			// Client is slow, skip this event
		}
	}
}

// ClientCount returns the number of connected clients
func (h *BatchHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Global batch hub instance
var globalBatchHub *BatchHub
var batchHubOnce sync.Once

// GetBatchHub returns the global batch hub singleton
func GetBatchHub() *BatchHub {
	batchHubOnce.Do(func() {
		globalBatchHub = NewBatchHub()
	})
	return globalBatchHub
}
