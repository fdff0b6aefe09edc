package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/grimoire/internal/convert"
)

// drain collects every message currently buffered for ch.
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

func countContaining(msgs []string, sub string) int {
	n := 0
	for _, m := range msgs {
		if strings.Contains(m, sub) {
			n++
		}
	}
	return n
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe(0)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishConversionEvent_Delivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(0)
	defer b.Unsubscribe(ch)

	b.PublishConversionEvent(convert.EventCompleted, convert.Event{ID: "c1", Source: "a.md"})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "id: 1\n") {
			t.Errorf("missing event id in %q", s)
		}
		if !strings.Contains(s, "event: conversion.completed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"source":"a.md"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishConversionEvent_HistoryThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(0)
	defer b.Unsubscribe(ch)

	// First event should trigger history.updated.
	b.PublishConversionEvent(convert.EventCompleted, convert.Event{ID: "1", Source: "a.md"})
	// Second event immediately should NOT trigger another history.updated.
	b.PublishConversionEvent(convert.EventCompleted, convert.Event{ID: "2", Source: "b.md"})

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)

	if n := countContaining(msgs, "event: conversion.completed"); n != 2 {
		t.Errorf("conversion events = %d, want 2", n)
	}
	if n := countContaining(msgs, "event: history.updated"); n != 1 {
		t.Errorf("history events = %d, want 1 (throttled)", n)
	}
}

func TestPublishConversionEvent_Failed(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(0)
	defer b.Unsubscribe(ch)

	b.PublishConversionEvent(convert.EventFailed, convert.Event{Source: "x.md", Error: "boom"})
	b.PublishConversionEvent("unknown", convert.Event{Source: "y.md"})

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)

	if len(msgs) != 1 {
		t.Fatalf("messages = %q, want only the failure", msgs)
	}
	if !strings.Contains(msgs[0], "event: conversion.failed") || !strings.Contains(msgs[0], `"error":"boom"`) {
		t.Errorf("unexpected message %q", msgs[0])
	}
}

func TestSubscribe_ReplaysBacklog(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	// ids 1 (completed), 2 (history.updated), 3 (failed)
	b.PublishConversionEvent(convert.EventCompleted, convert.Event{ID: "1", Source: "a.md"})
	b.PublishConversionEvent(convert.EventFailed, convert.Event{Source: "b.md", Error: "bad"})
	time.Sleep(50 * time.Millisecond)

	ch := b.Subscribe(1)
	defer b.Unsubscribe(ch)
	msgs := drain(ch)
	if len(msgs) != 2 {
		t.Fatalf("replayed %d frames, want 2: %q", len(msgs), msgs)
	}
	if !strings.HasPrefix(msgs[0], "id: 2\nevent: history.updated") {
		t.Errorf("first replayed frame = %q", msgs[0])
	}
	if !strings.HasPrefix(msgs[1], "id: 3\nevent: conversion.failed") {
		t.Errorf("second replayed frame = %q", msgs[1])
	}

	fresh := b.Subscribe(0)
	defer b.Unsubscribe(fresh)
	if got := drain(fresh); len(got) != 0 {
		t.Errorf("new client without Last-Event-ID got %q", got)
	}
}

func waitFrame(t *testing.T, ch chan []byte) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a frame")
	}
}

func TestSubscribe_ReplayQueuedBeforeReturn(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	live := b.Subscribe(0)
	defer b.Unsubscribe(live)

	b.PublishConversionEvent(convert.EventFailed, convert.Event{Source: "a.md", Error: "bad"})
	waitFrame(t, live)

	fresh := b.Subscribe(0)
	defer b.Unsubscribe(fresh)
	if n := len(fresh); n != 0 {
		t.Fatalf("subscriber without Last-Event-ID has %d queued frames", n)
	}

	b.PublishConversionEvent(convert.EventFailed, convert.Event{Source: "b.md", Error: "bad"})
	waitFrame(t, live)

	late := b.Subscribe(1)
	defer b.Unsubscribe(late)
	if n := len(late); n != 1 {
		t.Fatalf("queued %d frames when Subscribe returned, want 1", n)
	}
}

func TestBacklogIsBounded(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	for i := 0; i < backlogSize+10; i++ {
		b.PublishConversionEvent(convert.EventFailed, convert.Event{Source: "x.md"})
	}
	time.Sleep(50 * time.Millisecond)

	ch := b.Subscribe(1)
	defer b.Unsubscribe(ch)
	msgs := drain(ch)
	if len(msgs) != backlogSize {
		t.Fatalf("replayed %d frames, want %d", len(msgs), backlogSize)
	}
	if !strings.HasPrefix(msgs[0], "id: 11\n") {
		t.Errorf("oldest kept frame = %q", msgs[0])
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100*time.Millisecond, WithKeepAlive(20*time.Millisecond))
	defer b.Close()

	// Start handler in background.
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

	b.PublishConversionEvent(convert.EventCompleted, convert.Event{ID: "x", Source: "x.md"})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: conversion.completed") {
		t.Errorf("handler output missing event: %q", body)
	}
	if !strings.Contains(body, ": keep-alive") {
		t.Errorf("handler output missing keep-alive: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestSSEHandler_LastEventID(t *testing.T) {
	b := NewBroker(time.Hour, WithKeepAlive(0))
	defer b.Close()
	b.PublishConversionEvent(convert.EventFailed, convert.Event{Source: "missed.md"})
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "0")
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if strings.Contains(w.Body.String(), "missed.md") {
		t.Errorf("Last-Event-ID 0 should not replay: %q", w.Body.String())
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe(0)
	defer b.Unsubscribe(ch)

	// Fill buffer and then one more should not block.
	for i := 0; i < clientBuffer+6; i++ {
		b.PublishConversionEvent(convert.EventFailed, convert.Event{Source: "x.md"})
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(drain(ch)); n != clientBuffer {
		t.Errorf("buffered %d frames, want %d", n, clientBuffer)
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe(0)
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
	b.PublishConversionEvent(convert.EventCompleted, convert.Event{ID: "x"})
	if _, ok := <-b.Subscribe(0); ok {
		t.Fatal("subscribe after close should return a closed channel")
	}
}
