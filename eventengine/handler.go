package eventengine

import "github.com/web3guy0/tradecore/types"

// Handler is the capability set every event subscriber must implement —
// the polymorphism-over-interface replacement for the source's
// inheritance-based EventHandler hierarchy (see design notes).
type Handler interface {
	// Name identifies the handler for logging and statistics.
	Name() string

	// Initialize is called once before the handler's worker is activated.
	// Returning an error abandons registration — the handler is never
	// wired onto the bus.
	Initialize() error

	// HandleEvent processes one event. Handlers are invoked serially by
	// their own dedicated worker; they never need to be reentrant-safe
	// against themselves, only against concurrent calls from other
	// components reading their own state.
	HandleEvent(event *types.Event)

	// Destroy releases any resources. Called once, from Unregister; engine
	// shutdown (Engine.Stop) stops the workers without calling it.
	Destroy()
}
