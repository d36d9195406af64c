package contracts

// Presence tracks which users currently hold a live connection. Entries are
// volatile: they are lost on process restart, so IsOnline is best-effort and
// never a durability guarantee. No other component may bypass it to decide
// whether a user is reachable.
type Presence interface {
	// Connect records the mapping, displacing any previous handle for the
	// same user (last connection wins).
	Connect(userID string, c Client)
	// Disconnect removes the entry only if the stored handle is the one
	// disconnecting; a missing or displaced entry is not an error.
	Disconnect(c Client)
	// IsOnline is a pure point-in-time read.
	IsOnline(userID string) bool
}
