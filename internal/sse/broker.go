// Package sse implements a Server-Sent Events broker for conversion updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/starford/grimoire/internal/convert"
)

// Event types sent to clients.
const (
	TypeConversionCompleted = "conversion.completed"
	TypeConversionFailed    = "conversion.failed"
	TypeHistoryUpdated      = "history.updated"
)

const (
	// backlogSize is how many recent frames are kept for clients that
	// reconnect with Last-Event-ID.
	backlogSize      = 64
	clientBuffer     = 64
	defaultKeepAlive = 15 * time.Second
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type frame struct {
	id  uint64
	raw []byte
}

type subscribeReq struct {
	ch     chan []byte
	lastID uint64
	done   chan struct{}
}

type conversionEventReq struct {
	kind string
	ev   convert.Event
}

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets the interval of comment frames that keep idle
// connections open through proxies. Zero disables them.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients, backlog, sequence and history throttle timestamp). Public methods
// communicate with this loop through channels, so no mutexes are required.
type Broker struct {
	historyMin time.Duration
	keepAlive  time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	conversionCh  chan conversionEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. history.updated is sent at most once
// per historyThrottle.
func NewBroker(historyThrottle time.Duration, opts ...Option) *Broker {
	if historyThrottle <= 0 {
		historyThrottle = 2 * time.Second
	}

	b := &Broker{
		historyMin:    historyThrottle,
		keepAlive:     defaultKeepAlive,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		conversionCh:  make(chan conversionEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	backlog := make([]frame, 0, backlogSize)
	var seq uint64
	var lastHistory time.Time

	send := func(ch chan []byte, raw []byte) {
		select {
		case ch <- raw:
		default:
			// Client buffer full; skip to avoid blocking broker loop.
		}
	}

	broadcast := func(eventType string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			return
		}
		seq++
		f := frame{id: seq, raw: fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", seq, eventType, payload)}
		if len(backlog) == backlogSize {
			backlog = append(backlog[:0], backlog[1:]...)
		}
		backlog = append(backlog, f)

		for ch := range clients {
			send(ch, f.raw)
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			if req.lastID > 0 {
				for _, f := range backlog {
					if f.id > req.lastID {
						send(req.ch, f.raw)
					}
				}
			}
			clients[req.ch] = struct{}{}
			close(req.done)

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case req := <-b.conversionCh:
			switch req.kind {
			case convert.EventCompleted:
				broadcast(TypeConversionCompleted, req.ev)
			case convert.EventFailed:
				// Failures leave the history untouched.
				broadcast(TypeConversionFailed, req.ev)
				continue
			default:
				continue
			}

			now := time.Now()
			if now.Sub(lastHistory) >= b.historyMin {
				lastHistory = now
				broadcast(TypeHistoryUpdated, map[string]string{})
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

// Subscribe adds a new client and returns its channel. Frames newer than
// lastID that are still in the backlog are queued first; zero means none.
func (b *Broker) Subscribe(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	req := subscribeReq{ch: ch, lastID: lastID, done: make(chan struct{})}
	select {
	case b.subscribeCh <- req:
	case <-b.stopped:
		close(ch)
		return ch
	}

	// The replay is queued once the loop has registered the client.
	select {
	case <-req.done:
	case <-b.stopped:
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

// PublishConversionEvent publishes a conversion outcome and, for completed
// conversions, a throttled history.updated event. Its signature matches
// convert.EventCallback.
func (b *Broker) PublishConversionEvent(kind string, ev convert.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.conversionCh <- conversionEventReq{kind: kind, ev: ev}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). Clients that
// reconnect with a Last-Event-ID header receive the frames they missed.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(lastID)
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.keepAlive > 0 {
		ticker := time.NewTicker(b.keepAlive)
		defer ticker.Stop()
		tick = ticker.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
