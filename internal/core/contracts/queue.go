package contracts

import "context"

// OfflineQueue is the durable per-recipient FIFO holding messages published
// while the recipient was unreachable. Enqueue is called only when the
// point-in-time presence check said offline; the connect-time Drain closes
// the inherent race. At-least-once: a crash between drain and the
// persistence-status flip may redeliver, never lose.
type OfflineQueue interface {
	// Enqueue appends the payload to the recipient's queue.
	Enqueue(ctx context.Context, recipient string, payload []byte) error
	// Drain atomically returns and removes everything queued for the
	// recipient, in enqueue order. Idempotent; an empty queue yields nil.
	Drain(ctx context.Context, recipient string) ([][]byte, error)
}
