package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 16

// SubmissionEvent announces a new startup submission to a directory.
type SubmissionEvent struct {
	DirectorySlug string    `json:"directorySlug"`
	StartupID     uuid.UUID `json:"startupId"`
	StartupName   string    `json:"startupName"`
	StartupSlug   string    `json:"startupSlug"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// SubmissionHub fans submission events out to per-directory subscribers.
// Sends never block: a subscriber whose buffer is full misses the event.
type SubmissionHub struct {
	mu        sync.Mutex
	listeners map[string]map[chan SubmissionEvent]struct{}
}

// NewSubmissionHub creates an empty hub.
func NewSubmissionHub() *SubmissionHub {
	return &SubmissionHub{
		listeners: make(map[string]map[chan SubmissionEvent]struct{}),
	}
}

// Subscribe registers a listener for directorySlug. The returned cancel
// function unregisters it and closes the channel; it is safe to call twice.
func (h *SubmissionHub) Subscribe(directorySlug string) (<-chan SubmissionEvent, func()) {
	ch := make(chan SubmissionEvent, subscriberBuffer)

	h.mu.Lock()
	if h.listeners[directorySlug] == nil {
		h.listeners[directorySlug] = make(map[chan SubmissionEvent]struct{})
	}
	h.listeners[directorySlug][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.listeners[directorySlug]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.listeners, directorySlug)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish sends ev to every subscriber of its directory.
func (h *SubmissionHub) Publish(ev SubmissionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.listeners[ev.DirectorySlug] {
		select {
		case ch <- ev:
		default:
			// Listener is slow, skip this event
		}
	}
}

// SubscriberCount returns the number of listeners for directorySlug.
func (h *SubmissionHub) SubscriberCount(directorySlug string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[directorySlug])
}
