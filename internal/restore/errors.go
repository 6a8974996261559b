// Package restore rebuilds live cards, ports and connections from a snapshot.
//
// Restoration is best-effort: a card or connection that cannot be rebuilt is
// recorded and skipped, never aborting the rest of the batch.
package restore

import "errors"

// ErrUnresolvedEndpoint marks a connection whose port could not be found.
var ErrUnresolvedEndpoint = errors.New("unresolved endpoint")

// EndpointError reports which side of a connection failed to resolve.
type EndpointError struct {
	Side   string
	PortID string
}

func (e *EndpointError) Error() string { return e.Side + " port missing" }

func (e *EndpointError) Unwrap() error { return ErrUnresolvedEndpoint }
