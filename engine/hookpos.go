package engine

import "github.com/sarchlab/rtsim/hooking"

// Hook positions invoked by the Engine. Job positions carry a
// model.JobRecord as the item. HookPosTickEnd carries the Slot that was just
// appended to the timeline. HookPosRunStart carries nothing and
// HookPosRunEnd carries the *Result.
var (
	HookPosRunStart    = &hooking.HookPos{Name: "RunStart"}
	HookPosJobRelease  = &hooking.HookPos{Name: "JobRelease"}
	HookPosJobMiss     = &hooking.HookPos{Name: "JobMiss"}
	HookPosJobOverdue  = &hooking.HookPos{Name: "JobOverdue"}
	HookPosJobPreempt  = &hooking.HookPos{Name: "JobPreempt"}
	HookPosJobComplete = &hooking.HookPos{Name: "JobComplete"}
	HookPosTickEnd     = &hooking.HookPos{Name: "TickEnd"}
	HookPosRunEnd      = &hooking.HookPos{Name: "RunEnd"}
)
