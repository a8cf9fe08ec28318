package nexus

import "github.com/nexuscore/nexus/hook"

// RegisterReqFunc installs handler at req_type. Fails with
// ErrRegistrationClosed once any hook has registered, ErrSlotOccupied if
// the slot is already taken, or ErrInvalidHandler if handler is nil.
// Exactly-once per req_type: a second call on an already-occupied slot
// never mutates the table (§8, property 3).
func (n *Nexus) RegisterReqFunc(reqType uint8, handler ReqFunc) error {
	if handler == nil {
		return ErrInvalidHandler
	}
	if !n.registrationAllowed.Load() {
		return ErrRegistrationClosed
	}
	if !n.reqFuncs.tryRegister(reqType, handler) {
		return ErrSlotOccupied
	}
	return nil
}

// RegisterHook installs h into the registry at h.EndpointID, wiring in the
// Nexus-owned queue references: the shared SM TX queue and every
// background worker's request queue. The first successful call here
// freezes request-function registration permanently (§4.4).
func (n *Nexus) RegisterHook(h *hook.Hook) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.hooks[h.EndpointID] != nil {
		return ErrHookOccupied
	}

	h.SMTxQueue = n.smTxQueue
	h.BgReqQueues = n.bgQueues
	n.hooks[h.EndpointID] = h
	n.registrationAllowed.Store(false)
	return nil
}

// UnregisterHook clears the registry slot for h.EndpointID. The caller
// must not touch h's installed queue references afterward.
func (n *Nexus) UnregisterHook(h *hook.Hook) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.hooks[h.EndpointID] == nil {
		return ErrHookNotRegistered
	}
	n.hooks[h.EndpointID] = nil
	return nil
}

// RPCIDExists reports whether rpcID currently has a registered Hook.
func (n *Nexus) RPCIDExists(rpcID uint8) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hooks[rpcID] != nil
}

// hookFor looks up a registered Hook under the lock, for internal use by
// the SM thread's dispatch path (§9's open question: the simple discipline
// of taking the lock on every read, since it's uncontended off the data
// path).
func (n *Nexus) hookFor(rpcID uint8) *hook.Hook {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hooks[rpcID]
}
