package sse

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/planboard/internal/observability"
)

// drain collects every message currently buffered on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100*time.Millisecond, nil)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestClientGauge(t *testing.T) {
	m := observability.NewMetrics("planboard")
	b := NewBroker(100*time.Millisecond, m)
	defer b.Close()

	ch := b.Subscribe("")
	_ = b.ClientCount()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "planboard_sse_clients 1") {
		t.Errorf("gauge missing in scrape:\n%s", body)
	}
	b.Unsubscribe(ch)
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100*time.Millisecond, nil)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "event.created", Data: map[string]string{"id": "e1"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: event.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"e1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishChange_InsightsThrottledPerProject(t *testing.T) {
	b := NewBroker(500*time.Millisecond, nil)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishChange("task.created", "p1", "t1")
	b.PublishChange("task.updated", "p1", "t1")
	b.PublishChange("event.created", "p2", "e1")

	time.Sleep(50 * time.Millisecond)
	insights := map[string]int{}
	changes := 0
	for _, s := range drain(ch) {
		if strings.Contains(s, "event: "+EventInsightsUpdated) {
			switch {
			case strings.Contains(s, `"projectId":"p1"`):
				insights["p1"]++
			case strings.Contains(s, `"projectId":"p2"`):
				insights["p2"]++
			}
			continue
		}
		changes++
	}

	if changes != 3 {
		t.Errorf("change events = %d, want 3", changes)
	}
	if insights["p1"] != 1 || insights["p2"] != 1 {
		t.Errorf("insights events = %v, want one per project", insights)
	}
}

func TestSubscribe_ProjectFilter(t *testing.T) {
	b := NewBroker(time.Second, nil)
	defer b.Close()
	ch := b.Subscribe("p1")
	defer b.Unsubscribe(ch)

	b.PublishChange("event.created", "p2", "e2")
	b.PublishChange("event.created", "p1", "e1")
	b.Publish(Event{Type: "server.notice", Data: map[string]string{}})

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)
	for _, s := range msgs {
		if strings.Contains(s, `"projectId":"p2"`) {
			t.Errorf("p2 event leaked to p1 client: %q", s)
		}
	}
	// event.created + insights.updated for p1, plus the broadcast notice.
	if len(msgs) != 3 {
		t.Errorf("messages = %d, want 3: %q", len(msgs), msgs)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100*time.Millisecond, nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishChange("task.deleted", "p1", "t9")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: task.deleted") || !strings.Contains(body, `"id":"t9"`) {
		t.Errorf("handler output missing event: %q", body)
	}
	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second, nil)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100*time.Millisecond, nil)
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "event.updated", Data: map[string]string{"id": "x"}})
	b.PublishChange("event.updated", "p1", "x")
}
