package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/vanderheijden86/kgview/pkg/watcher"
)

// ChangeHub fans "changed" events out to SSE clients. Events come from API
// mutations and, when a watcher is attached, from writes to the backing file
// by other processes.
type ChangeHub struct {
	watcher *watcher.Watcher

	mu      sync.RWMutex
	clients map[chan struct{}]struct{}
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewChangeHub creates a hub. w may be nil.
func NewChangeHub(w *watcher.Watcher) *ChangeHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &ChangeHub{
		watcher: w,
		clients: make(map[chan struct{}]struct{}),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start begins forwarding watcher events.
func (h *ChangeHub) Start() error {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return nil
	}
	h.started = true
	h.mu.Unlock()

	if h.watcher == nil {
		close(h.done)
		return nil
	}
	if err := h.watcher.Start(); err != nil {
		close(h.done)
		return fmt.Errorf("start change watcher: %w", err)
	}
	go h.watchLoop()
	return nil
}

// Stop shuts the hub down and disconnects every client. A hub that was
// never started only disconnects its clients.
func (h *ChangeHub) Stop() {
	h.cancel()
	h.mu.RLock()
	started := h.started
	h.mu.RUnlock()
	if started {
		if h.watcher != nil {
			h.watcher.Stop()
		}
		<-h.done
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		close(ch)
	}
	h.clients = make(map[chan struct{}]struct{})
}

// ClientCount returns the number of connected clients.
func (h *ChangeHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *ChangeHub) watchLoop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.watcher.Changed():
			log.Printf("api: %s changed on disk", h.watcher.Path())
			h.Notify()
		}
	}
}

// Notify sends a change signal to every connected client. Clients that
// already have a signal pending are skipped.
func (h *ChangeHub) Notify() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// ServeHTTP streams change events as Server-Sent Events.
func (h *ChangeHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	clientCh := make(chan struct{}, 1)
	h.mu.Lock()
	h.clients[clientCh] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, clientCh)
		h.mu.Unlock()
	}()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.ctx.Done():
			return
		case _, ok := <-clientCh:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: changed\ndata: {\"action\":\"reload\"}\n\n")
			flusher.Flush()
		}
	}
}
