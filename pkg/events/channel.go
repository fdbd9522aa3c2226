// Package events adapts the native SDK's named broadcast events into typed
// outcomes and per-listener subscriptions.
package events

// Native event names.
const (
	// CurrentPosition carries the result of a one-shot request.
	CurrentPosition = "BMapGetCurrentLocationPosition"
	// LocationUpdate carries every fix of a continuous run.
	LocationUpdate = "BMapLocationUpdate"
	// LocationError is shared by one-shot and continuous flows.
	LocationError = "BMapLocationError"
)

// Names lists every event the SDK can emit.
var Names = []string{CurrentPosition, LocationUpdate, LocationError}

// Handler receives a decoded event.
type Handler func(Outcome)

// Subscription is a live listener registration.
// Remove is idempotent and safe to call from inside the handler.
type Subscription interface {
	Remove()
}

// Channel is the subscribe side of the platform event mechanism.
type Channel interface {
	Subscribe(name string, h Handler) Subscription
}

// Emitter is the publish side, used by SDK implementations.
type Emitter interface {
	Emit(name string, payload []byte)
}
