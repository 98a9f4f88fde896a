// Package locate detects a visitor's postcode from their IP address or device
// coordinates and caches the result for the browsing session.
package locate

import "errors"

var (
	// ErrNoPostcode means the provider answered but gave no usable
	// Australian postcode.
	ErrNoPostcode = errors.New("locate: no postcode for location")
	// ErrUnavailable means the provider could not be reached in time.
	ErrUnavailable = errors.New("locate: provider unavailable")
	// ErrPermissionDenied means the visitor declined device location access.
	ErrPermissionDenied = errors.New("locate: permission denied")
	// ErrInvalidCoordinates rejects latitude/longitude outside valid bounds.
	ErrInvalidCoordinates = errors.New("locate: invalid coordinates")
	// ErrSessionNotFound is returned by stores with no entry for a session.
	ErrSessionNotFound = errors.New("locate: session not found")
)

// FriendlyMessage maps a detection failure onto the text shown beside the
// postcode input. Detection is best effort, so every error has a message.
func FriendlyMessage(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Location permission denied. Please enter postcode manually."
	case errors.Is(err, ErrNoPostcode):
		return "Could not determine postcode from your location"
	default:
		return "Could not detect location. Please enter postcode manually."
	}
}
