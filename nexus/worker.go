package nexus

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/nexuscore/nexus/hook"
)

// runWorker is a single background worker's event loop (§4.7): block until
// an item is available or the kill switch fires, then dispatch by kind.
// Workers never hold locks across a handler invocation; a handler may
// submit further work to any endpoint via its Hook.
func (n *Nexus) runWorker(ctx context.Context, idx int, pin int, pinned bool) {
	defer n.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if pinned {
		var mask unix.CPUSet
		mask.Set(pin)
		if err := unix.SchedSetaffinity(0, &mask); err != nil {
			n.log.Warnw("failed to pin background worker to cpu", "worker", idx, "cpu", pin, "error", err)
		}
	}

	q := n.bgQueues[idx]
	log := n.log.With("worker", idx)
	log.Debug("background worker starting")
	defer log.Debug("background worker stopped")

	for {
		if n.killSwitch.Load() {
			return
		}
		item, ok := q.TryPop()
		if !ok {
			q.Wait(ctx)
			select {
			case <-ctx.Done():
				return
			default:
			}
			continue
		}
		n.dispatchBgWorkItem(log, item)
	}
}

func (n *Nexus) dispatchBgWorkItem(log *zap.SugaredLogger, item hook.BgWorkItem) {
	switch item.Kind {
	case hook.BgKindRequest:
		handler := n.reqFuncs.lookup(item.ReqType)
		if handler == nil {
			log.Warnw("no handler registered for request type", "req_type", item.ReqType, "endpoint", item.EndpointID)
			item.Slot.Respond(nil, ErrHandlerMissingForReqType(item.ReqType))
			return
		}
		handler(item.Ctx, item.Slot)
	case hook.BgKindResponse:
		item.Slot.Respond(item.Ctx, nil)
	}
}
