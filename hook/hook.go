// Package hook defines the per-endpoint mailbox and reference pack a Nexus
// installs for every registered RPC endpoint, and the Background Work Item
// routed through a worker's request queue.
package hook

import (
	"fmt"

	"github.com/nexuscore/nexus/mtlist"
	"github.com/nexuscore/nexus/smpkt"
	"github.com/nexuscore/nexus/sslot"
)

// BgKind discriminates the two shapes of Background Work Item.
type BgKind uint8

const (
	BgKindRequest BgKind = iota
	BgKindResponse
)

func (k BgKind) String() string {
	if k == BgKindResponse {
		return "response"
	}
	return "request"
}

// BgWorkItem is pushed onto a background worker's request queue by an
// endpoint, and popped by exactly that worker.
type BgWorkItem struct {
	Kind BgKind
	// EndpointID names the submitting endpoint; the worker never derefs
	// back into the endpoint beyond this owning reference.
	EndpointID uint8
	// ReqType selects the handler slot for BgKindRequest items; ignored
	// for BgKindResponse.
	ReqType uint8
	Ctx     any
	Slot    *sslot.SessionSlot
}

// Hook is the record an RPC endpoint allocates, fills in its EndpointID
// for, and installs via a Nexus's RegisterHook. Endpoints read the
// Nexus-installed queue references but never mutate them after
// registration; the Hook itself is owned by the endpoint, not the Nexus.
type Hook struct {
	EndpointID uint8

	// BgReqQueues is installed by Nexus at registration: one entry per
	// background worker, shared across every registered Hook.
	BgReqQueues []*mtlist.MtList[BgWorkItem]

	// SMTxQueue is installed by Nexus at registration: the single queue
	// owned by the SM thread context, shared across every registered Hook.
	SMTxQueue *mtlist.MtList[smpkt.WorkItem]

	// SMRxQueue is owned by this Hook (allocated by NewHook, drained only by
	// the endpoint that registered it).
	SMRxQueue *mtlist.MtList[smpkt.WorkItem]
}

// NewHook allocates a Hook for endpointID together with its owned SM RX
// mailbox. BgReqQueues and SMTxQueue are left nil until a Nexus installs
// them via RegisterHook.
func NewHook(endpointID uint8, smRxCapacity int) *Hook {
	return &Hook{
		EndpointID: endpointID,
		SMRxQueue:  mtlist.New[smpkt.WorkItem](smRxCapacity),
	}
}

// SubmitBgRequest pushes a request-kind Background Work Item onto the
// worker queue at index workerIdx. Wait-free: the endpoint thread never
// blocks.
func (h *Hook) SubmitBgRequest(workerIdx int, reqType uint8, ctx any, slot *sslot.SessionSlot) error {
	if workerIdx < 0 || workerIdx >= len(h.BgReqQueues) {
		return fmt.Errorf("hook: worker index %d out of range [0,%d)", workerIdx, len(h.BgReqQueues))
	}
	return h.BgReqQueues[workerIdx].Push(BgWorkItem{
		Kind:       BgKindRequest,
		EndpointID: h.EndpointID,
		ReqType:    reqType,
		Ctx:        ctx,
		Slot:       slot,
	})
}

// SubmitSM pushes an SM Work Item onto the Nexus-owned SM TX queue.
func (h *Hook) SubmitSM(item smpkt.WorkItem) error {
	if h.SMTxQueue == nil {
		return fmt.Errorf("hook: endpoint %d not yet registered, no sm tx queue installed", h.EndpointID)
	}
	return h.SMTxQueue.Push(item)
}

// PollSM performs a non-blocking drain of this Hook's owned SM RX mailbox.
func (h *Hook) PollSM() []smpkt.WorkItem {
	return h.SMRxQueue.DrainAll()
}
