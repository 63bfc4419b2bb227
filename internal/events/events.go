// Package events fans query-log notifications out to live monitors and the message broker.
package events

import (
	"context"
	"time"

	"github.com/mudler/xlog"
)

const TypeQueryLogged = "query.logged"

// QueryLogged announces one relayed chat message and its outcome.
type QueryLogged struct {
	Type           string    `json:"type"`
	QueryID        string    `json:"query_id"`
	AgentID        string    `json:"agent_id"`
	AgentName      string    `json:"agent_name"`
	SessionID      string    `json:"session_id"`
	Success        bool      `json:"success"`
	ResponseTimeMS int       `json:"response_time_ms"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Publisher delivers events. Implementations never block the request path
// for long and report failures only through logs.
type Publisher interface {
	PublishQueryLogged(ctx context.Context, ev QueryLogged)
}

type noop struct{}

func (noop) PublishQueryLogged(context.Context, QueryLogged) {}

// Noop discards every event.
func Noop() Publisher { return noop{} }

type multi []Publisher

func (m multi) PublishQueryLogged(ctx context.Context, ev QueryLogged) {
	for _, p := range m {
		p.PublishQueryLogged(ctx, ev)
	}
}

// Multi publishes to each non-nil publisher in order.
func Multi(publishers ...Publisher) Publisher {
	out := make(multi, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return Noop()
	}
	return out
}

// Broadcaster is satisfied by the websocket hub.
type Broadcaster interface {
	BroadcastJSON(v any) error
}

type hubPublisher struct {
	hub Broadcaster
}

// NewHubPublisher pushes events to connected monitoring clients.
func NewHubPublisher(hub Broadcaster) Publisher {
	return &hubPublisher{hub: hub}
}

func (p *hubPublisher) PublishQueryLogged(_ context.Context, ev QueryLogged) {
	if err := p.hub.BroadcastJSON(ev); err != nil {
		xlog.Warn("Failed to broadcast event", "type", ev.Type, "error", err)
	}
}
