// Package sched runs named long-lived tasks on goroutines and keeps a table of the live ones,
// so task labels stay observable the way they are on an RTOS.
package sched

import (
	"context"
	"sort"
	"sync"

	"actorcode-go/errcode"
)

// Spec describes a task. StackSize and Priority are advisory on Go targets but are kept on
// the task for introspection.
type Spec struct {
	Name      string
	StackSize int
	Priority  int
}

// Task is a handle to a spawned task.
type Task struct {
	spec   Spec
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *Task) Name() string { return t.spec.Name }
func (t *Task) Spec() Spec   { return t.spec }

// Done is closed once the task's entry function has returned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxTasks caps the number of live tasks; Spawn fails with SpawnFailed beyond it.
// It models task-control-block exhaustion on small heaps. 0 means unlimited.
func WithMaxTasks(n int) Option { return func(s *Scheduler) { s.maxTasks = n } }

type Scheduler struct {
	mu       sync.Mutex
	ctx      context.Context
	tasks    map[*Task]struct{}
	maxTasks int
}

// New returns a scheduler whose tasks are cancelled when ctx is.
func New(ctx context.Context, opts ...Option) *Scheduler {
	s := &Scheduler{ctx: ctx, tasks: map[*Task]struct{}{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetMaxTasks changes the live task cap.
func (s *Scheduler) SetMaxTasks(n int) {
	s.mu.Lock()
	s.maxTasks = n
	s.mu.Unlock()
}

// Spawn starts entry on its own goroutine. The context passed to entry is cancelled when the
// task is deleted.
func (s *Scheduler) Spawn(spec Spec, entry func(ctx context.Context)) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawnLocked(spec, entry)
}

// Delete cancels t and removes it from the table. It does not wait for the entry function
// to return; use Done for that.
func (s *Scheduler) Delete(t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(t)
}

// Replace spawns a task for spec and, only if that succeeds, deletes old. Observers of the
// task table never see both tasks or neither. On failure old keeps running and is returned.
func (s *Scheduler) Replace(old *Task, spec Spec, entry func(ctx context.Context)) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nt, err := s.spawnLocked(spec, entry)
	if err != nil {
		return old, err
	}
	if old != nil {
		_ = s.deleteLocked(old)
	}
	return nt, nil
}

// Count returns how many live tasks carry name.
func (s *Scheduler) Count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for t := range s.tasks {
		if t.spec.Name == name {
			n++
		}
	}
	return n
}

// Names lists live task names, sorted.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.tasks))
	for t := range s.tasks {
		out = append(out, t.spec.Name)
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out
}

// Alive reports whether t is still in the table.
func (s *Scheduler) Alive(t *Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[t]
	return ok
}

func (s *Scheduler) spawnLocked(spec Spec, entry func(ctx context.Context)) (*Task, error) {
	if entry == nil || spec.Name == "" {
		return nil, &errcode.E{C: errcode.SpawnFailed, Op: "spawn", Msg: "missing name or entry"}
	}
	if s.maxTasks > 0 && len(s.tasks) >= s.maxTasks {
		return nil, &errcode.E{C: errcode.SpawnFailed, Op: "spawn " + spec.Name, Msg: "task limit reached"}
	}
	ctx, cancel := context.WithCancel(s.ctx)
	t := &Task{spec: spec, cancel: cancel, done: make(chan struct{})}
	s.tasks[t] = struct{}{}
	go func() {
		defer close(t.done)
		defer s.reap(t)
		entry(ctx)
	}()
	return t, nil
}

func (s *Scheduler) deleteLocked(t *Task) error {
	if t == nil {
		return errcode.UnknownTask
	}
	if _, ok := s.tasks[t]; !ok {
		return errcode.UnknownTask
	}
	delete(s.tasks, t)
	t.cancel()
	return nil
}

// reap drops a task whose entry returned by itself.
func (s *Scheduler) reap(t *Task) {
	s.mu.Lock()
	delete(s.tasks, t)
	s.mu.Unlock()
	t.cancel()
}

// CriticalSection serialises short sections that swap shared handles.
type CriticalSection struct {
	mu sync.Mutex
}

func (c *CriticalSection) Enter() { c.mu.Lock() }
func (c *CriticalSection) Exit()  { c.mu.Unlock() }
