package core

// Frame is one encoded wire frame: the 4-byte length prefix plus payload.
// A frame is encoded once and written verbatim to every recipient.
type Frame []byte

// SignalConnection is the outbound side of a member's transport.
// Owned by the adapter; the room only enqueues and evicts.
type SignalConnection interface {
	// TrySend enqueues f without blocking. It fails with ErrBackpressure
	// when the outbound queue is full and ErrConnClosed after shutdown.
	TrySend(f Frame) error
	// Evict asks the owning session to leave with reason. It must not block.
	Evict(reason string)
}
