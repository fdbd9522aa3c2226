// Package native defines the boundary to the platform positioning SDK.
//
// SDK calls are fire-and-forget: they either fail synchronously or return
// nil, and their results arrive later as named events on an events.Channel.
package native

import "errors"

// DefaultCoordType is the coordinate system requested from the SDK.
const DefaultCoordType = "gcj02"

var (
	// ErrPrivacyNotAccepted is returned when the privacy agreement could not be set.
	ErrPrivacyNotAccepted = errors.New("privacy agreement not accepted")
	// ErrClientUnavailable is returned when the SDK cannot create a location client.
	ErrClientUnavailable = errors.New("location client unavailable")
)

// SDK is the positioning surface every platform provides.
type SDK interface {
	// GetCurrentPosition requests a single fix, reported on events.CurrentPosition.
	GetCurrentPosition(coordType string) error
	// StartLocating begins continuous fixes, reported on events.LocationUpdate.
	StartLocating(coordType string, intervalMs, distanceFilter int) error
	// StopLocating ends any running request.
	StopLocating() error
}

// PrivacyInitializer is implemented by SDKs that need an explicit privacy
// agreement before positioning. Platforms without it are ready immediately.
type PrivacyInitializer interface {
	InitPrivacy() error
}

// LivenessReporter is implemented by SDKs that can report whether they are
// currently locating.
type LivenessReporter interface {
	IsStarted() bool
}
