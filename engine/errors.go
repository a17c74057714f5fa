package engine

import "errors"

// ErrInvalidConfig is returned when the tasks, the horizon, or the policy
// given to the engine cannot be simulated. Nothing is simulated when this
// error is returned.
var ErrInvalidConfig = errors.New("invalid simulation configuration")

// ErrEngineFault is returned when the engine detects that one of its own
// invariants is broken. It always indicates a bug, either in the engine or
// in a user-provided policy.
var ErrEngineFault = errors.New("engine fault")
