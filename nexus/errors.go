package nexus

import (
	"errors"
	"fmt"
)

// Construction and registration failures, including a second RegisterHook
// on an endpoint ID that already has a registered Hook (ErrHookOccupied).
var (
	// ErrRegistrationClosed is returned by RegisterReqFunc once the request-
	// function table has frozen (the first successful RegisterHook).
	ErrRegistrationClosed = errors.New("nexus: request-function registration is closed")
	// ErrSlotOccupied is returned when a request type already has a
	// registered handler.
	ErrSlotOccupied = errors.New("nexus: request type already has a registered handler")
	// ErrInvalidHandler is returned when RegisterReqFunc is given a nil
	// handler.
	ErrInvalidHandler = errors.New("nexus: handler must not be nil")
	// ErrHookOccupied is returned when RegisterHook targets an endpoint ID
	// that already has a registered Hook.
	ErrHookOccupied = errors.New("nexus: endpoint id already has a registered hook")
	// ErrHookNotRegistered is returned by UnregisterHook for an endpoint ID
	// with no registered Hook.
	ErrHookNotRegistered = errors.New("nexus: endpoint id has no registered hook")
	// ErrBgThreadsExceedsLimit is returned at construction when the
	// requested background-thread count exceeds MaxBgThreads.
	ErrBgThreadsExceedsLimit = errors.New("nexus: num_bg_threads exceeds configured limit")
	// ErrUnresolvableHost is surfaced to an endpoint's SM RX mailbox when
	// an SM connect request targets a hostname the control transport
	// cannot resolve.
	ErrUnresolvableHost = errors.New("nexus: sm connect target hostname is unresolvable")
)

// ErrHandlerMissingForReqType reports a request dispatch miss (§7): a
// Background Work Item named a request type with no registered handler.
// The session is not torn down; callers surface this as an error response.
func ErrHandlerMissingForReqType(reqType uint8) error {
	return fmt.Errorf("nexus: no handler registered for request type %d", reqType)
}
