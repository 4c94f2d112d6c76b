package installer

import (
	"io"
	"log/slog"

	"github.com/roach88/hotswap/internal/bundle"
)

// Context is the capability bag a task receives for one execution.
//
// It exposes the module runtime, the currently executing cycle (for
// appending tasks), and a diagnostic logger. A Context is scoped to a
// single Execute call; tasks must not retain it.
type Context struct {
	runtime bundle.Runtime
	cycle   *Cycle
	log     *slog.Logger
}

// NewContext builds a task execution context. Any argument may be nil;
// tasks degrade per their own contracts when a capability is missing.
func NewContext(rt bundle.Runtime, cycle *Cycle, log *slog.Logger) *Context {
	return &Context{runtime: rt, cycle: cycle, log: log}
}

// Runtime returns the module runtime, or nil if unavailable.
func (c *Context) Runtime() bundle.Runtime { return c.runtime }

// Add appends a task to the currently executing cycle.
func (c *Context) Add(t Task) {
	if c.cycle != nil {
		c.cycle.Add(t)
	}
}

// Log returns the diagnostic logger. Logging is an observational
// capability: when none was provided, a discard logger is returned so
// tasks never fail for want of diagnostics.
func (c *Context) Log() *slog.Logger {
	if c.log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.log
}
