package hook_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexuscore/nexus/hook"
	"github.com/nexuscore/nexus/mtlist"
	"github.com/nexuscore/nexus/smpkt"
	"github.com/nexuscore/nexus/sslot"
)

func TestSubmitBgRequestRoutesToWorkerQueue(t *testing.T) {
	h := hook.NewHook(7, 16)
	h.BgReqQueues = []*mtlist.MtList[hook.BgWorkItem]{
		mtlist.New[hook.BgWorkItem](8),
		mtlist.New[hook.BgWorkItem](8),
	}

	slot := &sslot.SessionSlot{}
	require.NoError(t, h.SubmitBgRequest(1, 3, "ctx", slot))

	item, ok := h.BgReqQueues[1].TryPop()
	require.True(t, ok)
	require.Equal(t, hook.BgKindRequest, item.Kind)
	require.Equal(t, uint8(7), item.EndpointID)
	require.Equal(t, uint8(3), item.ReqType)

	_, ok = h.BgReqQueues[0].TryPop()
	require.False(t, ok)
}

func TestSubmitBgRequestRejectsOutOfRangeWorker(t *testing.T) {
	h := hook.NewHook(1, 4)
	require.Error(t, h.SubmitBgRequest(0, 0, nil, nil))
}

func TestSubmitSMBeforeRegistrationFails(t *testing.T) {
	h := hook.NewHook(2, 4)
	err := h.SubmitSM(smpkt.WorkItem{EndpointID: 2})
	require.Error(t, err)
}

func TestPollSMDrainsOwnedMailbox(t *testing.T) {
	h := hook.NewHook(5, 4)
	require.NoError(t, h.SMRxQueue.Push(smpkt.WorkItem{EndpointID: 5}))
	require.NoError(t, h.SMRxQueue.Push(smpkt.WorkItem{EndpointID: 5}))

	items := h.PollSM()
	require.Len(t, items, 2)
}
