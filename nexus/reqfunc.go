package nexus

import (
	"sync/atomic"

	"github.com/nexuscore/nexus/sslot"
)

// ReqFunc is a registered request handler, invoked by a background worker
// with the application context and session slot carried on the Background
// Work Item.
type ReqFunc func(ctx any, slot *sslot.SessionSlot)

// reqFuncTable is the write-once-then-read-many handler table described in
// §5: after the first RegisterHook call freezes registration, every
// background worker observes it without further synchronization. Each slot
// is an atomic.Pointer so a late write before freezing is visible to
// workers spawned earlier (they hold a pointer to the table, not a copy),
// and so concurrent registration attempts on the same slot race safely.
type reqFuncTable struct {
	slots [MaxReqTypes]atomic.Pointer[ReqFunc]
}

// tryRegister installs fn at reqType if the slot is empty. Returns false if
// the slot was already occupied; the table is left unmutated in that case.
func (t *reqFuncTable) tryRegister(reqType uint8, fn ReqFunc) bool {
	return t.slots[reqType].CompareAndSwap(nil, &fn)
}

// lookup returns the handler registered at reqType, or nil if unoccupied.
func (t *reqFuncTable) lookup(reqType uint8) ReqFunc {
	p := t.slots[reqType].Load()
	if p == nil {
		return nil
	}
	return *p
}
