// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/planboard/internal/models"
	"github.com/starford/planboard/internal/observability"
)

// EventInsightsUpdated tells clients to refetch a project's insights.
const EventInsightsUpdated = "insights.updated"

// Event represents an SSE event to broadcast. An empty ProjectID reaches
// every client.
type Event struct {
	Type      string `json:"type"`
	ProjectID string `json:"-"`
	Data      any    `json:"data"`
}

type changeReq struct {
	kind      string
	projectID string
	id        models.ID
}

type subscribeReq struct {
	ch        chan []byte
	projectID string
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + per-project insights throttle). Public methods communicate with this
// loop through channels, so no mutexes are required.
type Broker struct {
	insightsMin time.Duration
	metrics     *observability.Metrics

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan changeReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. insights.updated is sent at most once
// per project every insightsThrottle. m may be nil.
func NewBroker(insightsThrottle time.Duration, m *observability.Metrics) *Broker {
	if insightsThrottle <= 0 {
		insightsThrottle = 2 * time.Second
	}

	b := &Broker{
		insightsMin:   insightsThrottle,
		metrics:       m,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan changeReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	// client channel -> project filter ("" = all projects)
	clients := make(map[chan []byte]string)
	lastInsights := make(map[string]time.Time)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch, filter := range clients {
			if filter != "" && event.ProjectID != "" && filter != event.ProjectID {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			b.metrics.ClientConnected(-len(clients))
			return

		case req := <-b.subscribeCh:
			clients[req.ch] = req.projectID
			b.metrics.ClientConnected(1)

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
				b.metrics.ClientConnected(-1)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.changeCh:
			data := map[string]string{"projectId": req.projectID}
			if !req.id.IsZero() {
				data["id"] = string(req.id)
			}
			broadcast(Event{Type: req.kind, ProjectID: req.projectID, Data: data})

			now := time.Now()
			if now.Sub(lastInsights[req.projectID]) >= b.insightsMin {
				lastInsights[req.projectID] = now
				broadcast(Event{
					Type:      EventInsightsUpdated,
					ProjectID: req.projectID,
					Data:      map[string]string{"projectId": req.projectID},
				})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. A non-empty
// projectID limits the client to that project's events.
func (b *Broker) Subscribe(projectID string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscribeReq{ch: ch, projectID: projectID}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all matching clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishChange publishes a record change followed by a throttled
// insights.updated for the project. Its signature matches
// workspace.ChangeFunc.
func (b *Broker) PublishChange(kind, projectID string, id models.ID) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- changeReq{kind: kind, projectID: projectID, id: id}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The optional
// ?project= query narrows the stream to one project.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("project"))
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
