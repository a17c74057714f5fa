package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/hooking"
	"github.com/sarchlab/rtsim/model"
)

// CollectTrace lets the tracer collect the events of a domain, usually an
// engine. A tracer can only be attached to a domain once.
func CollectTrace(domain hooking.Hookable, tracer Tracer) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain already has tracer %s", reflect.TypeOf(tracer)))
		}
	}

	h := traceHook{t: tracer}
	domain.AcceptHook(&h)
}

// A traceHook forwards engine hooks to a tracer.
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered.
func (h *traceHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case engine.HookPosJobRelease:
		h.t.JobReleased(ctx.Now, ctx.Item.(model.JobRecord))
	case engine.HookPosJobPreempt:
		h.t.JobPreempted(ctx.Now, ctx.Item.(model.JobRecord))
	case engine.HookPosJobOverdue:
		h.t.JobOverdue(ctx.Now, ctx.Item.(model.JobRecord))
	case engine.HookPosJobMiss:
		h.t.JobMissed(ctx.Now, ctx.Item.(model.JobRecord))
	case engine.HookPosJobComplete:
		h.t.JobCompleted(ctx.Now, ctx.Item.(model.JobRecord))
	case engine.HookPosTickEnd:
		h.t.Tick(ctx.Item.(engine.Slot))
	}
}
