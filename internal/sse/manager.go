package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bestreads/bestreads-server/internal/id"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultEventBuffer       = 1000
	DefaultClientBuffer      = 100
	DefaultHeartbeatInterval = 30 * time.Second
)

// Observer receives fan-out statistics. The metrics collector implements it.
type Observer interface {
	ClientConnected()
	ClientDisconnected()
	EventBroadcast()
	EventDropped()
}

type noopObserver struct{}

func (noopObserver) ClientConnected()    {}
func (noopObserver) ClientDisconnected() {}
func (noopObserver) EventBroadcast()     {}
func (noopObserver) EventDropped()       {}

// Options tunes a Manager.
type Options struct {
	EventBuffer       int
	ClientBuffer      int
	HeartbeatInterval time.Duration
	Observer          Observer
}

// Client represents a connected SSE client.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
	UserID      string
}

// Manager fans every emitted event out to every connected client.
//
// Emit never blocks: events queue on a buffered channel consumed by Start,
// and each client has its own buffer. A slow client misses events rather than
// stalling the writer or other clients, so each client sees an event at most once.
type Manager struct {
	clients           map[string]*Client
	events            chan Event
	logger            *slog.Logger
	observer          Observer
	clientBuffer      int
	heartbeatInterval time.Duration
	wg                sync.WaitGroup
	mu                sync.RWMutex

	// shutdownMu guards shutdown and the close of events.
	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewManager creates a new SSE Manager.
func NewManager(logger *slog.Logger, opts Options) *Manager {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.ClientBuffer <= 0 {
		opts.ClientBuffer = DefaultClientBuffer
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}

	return &Manager{
		clients:           make(map[string]*Client),
		events:            make(chan Event, opts.EventBuffer),
		logger:            logger,
		observer:          opts.Observer,
		clientBuffer:      opts.ClientBuffer,
		heartbeatInterval: opts.HeartbeatInterval,
	}
}

// Start runs the broadcast loop until ctx is done or Shutdown closes the queue.
// Call it once, in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info("SSE manager starting")

	heartbeat := time.NewTicker(m.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				m.closeAllClients()
				return
			}
			m.broadcast(event)

		case <-heartbeat.C:
			m.broadcast(NewHeartbeatEvent())

		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.closeAllClients()
			return
		}
	}
}

// Shutdown stops accepting events, waits for queued events to be delivered
// (bounded by ctx) and disconnects all clients.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("SSE manager shutdown initiated")

	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	close(m.events)
	m.shutdownMu.Unlock()

	// Start drains the closed channel and then returns.
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("SSE manager shutdown complete")
	case <-ctx.Done():
		m.logger.Warn("SSE event drain timeout, some events may be lost")
		return ctx.Err()
	}
	return nil
}

// broadcast delivers event to every client without blocking.
func (m *Manager) broadcast(event Event) {
	var delivered, dropped int

	m.mu.RLock()
	for _, client := range m.clients {
		select {
		case client.EventChan <- event:
			delivered++
		default:
			dropped++
			m.observer.EventDropped()
			m.logger.Warn("dropped event for slow client",
				slog.String("client_id", client.ID),
				slog.String("event_type", string(event.Type)))
		}
	}
	m.mu.RUnlock()

	if event.Type != EventHeartbeat {
		m.observer.EventBroadcast()
		m.logger.Debug("event broadcast",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
			slog.Group("stats",
				slog.Int("delivered", delivered),
				slog.Int("dropped", dropped)))
	}
}

// Connect registers a client for userID.
func (m *Manager) Connect(userID string) (*Client, error) {
	clientID, err := id.Generate(id.PrefixClient)
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:          clientID,
		UserID:      userID,
		EventChan:   make(chan Event, m.clientBuffer),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	m.clients[client.ID] = client
	total := len(m.clients)
	m.mu.Unlock()

	m.observer.ClientConnected()
	m.logger.Info("SSE client connected",
		slog.String("client_id", clientID),
		slog.String("user_id", userID),
		slog.Int("total_clients", total))
	return client, nil
}

// Disconnect removes a client and closes its channels. Unknown ids are ignored.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	total := len(m.clients)
	m.mu.Unlock()

	close(client.Done)
	close(client.EventChan)

	m.observer.ClientDisconnected()
	m.logger.Info("SSE client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(client.ConnectedAt)),
		slog.Int("total_clients", total))
}

// Emit queues an event for broadcasting. Values other than Event are rejected.
func (m *Manager) Emit(event any) {
	evt, ok := event.(Event)
	if !ok {
		m.logger.Error("invalid event type emitted")
		return
	}

	// The read lock spans the send so Shutdown cannot close the channel under us.
	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()

	if m.shutdown {
		return
	}

	select {
	case m.events <- evt:
	default:
		m.observer.EventDropped()
		m.logger.Error("SSE event channel full, dropping event",
			slog.String("event_id", evt.ID),
			slog.String("event_type", string(evt.Type)))
	}
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Running reports whether the manager still accepts events.
func (m *Manager) Running() bool {
	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()
	return !m.shutdown
}

func (m *Manager) closeAllClients() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	for _, client := range clients {
		close(client.Done)
		close(client.EventChan)
		m.observer.ClientDisconnected()
	}
	m.logger.Info("all SSE clients disconnected", slog.Int("count", len(clients)))
}
