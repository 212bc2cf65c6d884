// Package post holds the power-on self-test gate. Dispatch across the firmware is suppressed
// until boot marks the gate as passed.
package post

import "go.uber.org/atomic"

// Gate is written once during boot and read by every dispatcher thereafter.
type Gate struct {
	ok atomic.Bool
}

// New returns a gate in the not-yet-passed state.
func New() *Gate { return &Gate{} }

// Pass records a successful self-test.
func (g *Gate) Pass() { g.ok.Store(true) }

// Fail withdraws the gate; used when a late self-test check fails.
func (g *Gate) Fail() { g.ok.Store(false) }

// Ready reports whether dispatch is allowed. A nil gate is never ready.
func (g *Gate) Ready() bool { return g != nil && g.ok.Load() }
