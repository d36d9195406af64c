package contracts

import "context"

// Relay is the thin publish side of the user-scoped topic fan-out. Delivery
// is reliable and ordered for currently-subscribed listeners, at-most-once:
// a push to an offline user is a logged no-op, never an error that rolls
// back the state mutation that triggered it.
type Relay interface {
	Publish(ctx context.Context, userID string, event any) error
}

// Client is the minimal interface the hub needs to talk to one websocket
// connection.
type Client interface {
	UserID() string
	Send(ctx context.Context, data []byte) error
	Close()
}
