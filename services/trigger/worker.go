package trigger

import (
	"context"
	"time"

	"actorcode-go/errcode"
	"actorcode-go/services/sched"
)

const (
	taskPrefix   = "Trig_"
	taskStack    = 2048
	taskPriority = 1

	// triggerPollInterval is the yield between two latch observations.
	triggerPollInterval = 5 * time.Millisecond
)

func taskName(name string) string { return taskPrefix + name }

// TaskName returns the label of the running worker, or "" when none runs.
func (in *Interrupt) TaskName() string {
	in.renameCS.Enter()
	defer in.renameCS.Exit()
	if in.task == nil {
		return ""
	}
	return in.task.Name()
}

func (in *Interrupt) spec(name string) sched.Spec {
	return sched.Spec{Name: taskName(name), StackSize: taskStack, Priority: taskPriority}
}

// startWorker spawns the worker unless one already runs.
func (in *Interrupt) startWorker() error {
	in.renameCS.Enter()
	defer in.renameCS.Exit()
	if in.task != nil {
		return &errcode.E{C: errcode.SpawnFailed, Op: "trigger start", Msg: "worker already running"}
	}
	if in.deps.Sched == nil {
		return &errcode.E{C: errcode.SpawnFailed, Op: "trigger start", Msg: "no scheduler"}
	}
	t, err := in.deps.Sched.Spawn(in.spec(in.Name()), in.run)
	if err != nil {
		return err
	}
	in.task = t
	return nil
}

// renameLocked relabels the worker by replacing it. The caller holds renameCS. On failure
// the old worker keeps running.
func (in *Interrupt) renameLocked(name string) error {
	if in.task == nil {
		return nil
	}
	t, err := in.deps.Sched.Replace(in.task, in.spec(name), in.run)
	in.task = t
	if err != nil {
		in.log.Errorf("Failed to update task name")
		return err
	}
	return nil
}

// run is the worker body. Its only suspension point is the pacing yield.
func (in *Interrupt) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		in.observe(ctx)
		select {
		case <-ctx.Done():
			return
		case <-in.deps.Clock.After(triggerPollInterval):
		}
	}
}

// observe consumes the latch once. It reports whether the latch was set. Workers serialise
// on fire so that a worker being replaced by a rename and its successor never both consume
// the same latch; a cancelled worker leaves the latch for its successor.
func (in *Interrupt) observe(ctx context.Context) bool {
	in.fire.Lock()
	defer in.fire.Unlock()
	if ctx.Err() != nil || !in.input.Triggered() {
		return false
	}
	in.mu.RLock()
	payload := in.payload
	in.mu.RUnlock()
	if in.triggerAction(payload) {
		in.log.Infof("Interrupt triggered in %s", in.Name())
	}
	in.input.ClearTrigger()
	return true
}
