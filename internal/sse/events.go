// Package sse pushes committed feed activities to connected clients over
// Server-Sent Events.
package sse

import (
	"time"

	"github.com/google/uuid"

	"github.com/bestreads/bestreads-server/internal/domain"
)

// EventType names the SSE "event:" field.
type EventType string

const (
	// EventReceiveActivity carries a committed activity, new or edited in place.
	EventReceiveActivity EventType = "ReceiveActivity"
	// EventActivityReacted carries an activity after a like, unlike or comment.
	EventActivityReacted EventType = "ActivityReacted"
	// EventConnected is the first event on every stream.
	EventConnected EventType = "connected"
	// EventHeartbeat keeps idle connections open through proxies.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one message on the stream. ID is unique per committed write so
// clients can drop duplicates after a reconnect.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// ActivityEventData is the payload of activity events.
type ActivityEventData struct {
	Activity *domain.Activity `json:"activity"`
}

// ConnectedEventData is sent once on connect.
type ConnectedEventData struct {
	ClientID string `json:"client_id"`
}

func newEvent(t EventType, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewActivityEvent wraps a committed activity.
func NewActivityEvent(a *domain.Activity) Event {
	return newEvent(EventReceiveActivity, ActivityEventData{Activity: a})
}

// NewActivityReactedEvent wraps an activity whose likes or comments changed.
func NewActivityReactedEvent(a *domain.Activity) Event {
	return newEvent(EventActivityReacted, ActivityEventData{Activity: a})
}

// NewConnectedEvent greets a new client.
func NewConnectedEvent(clientID string) Event {
	return newEvent(EventConnected, ConnectedEventData{ClientID: clientID})
}

// NewHeartbeatEvent creates a keepalive.
func NewHeartbeatEvent() Event {
	return newEvent(EventHeartbeat, struct{}{})
}
