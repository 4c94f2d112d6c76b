package installer

import (
	"sort"
	"sync"
)

// Cycle is one ordered batch of installer tasks executed to convergence.
//
// A cycle is an explicit work queue, not a fixed list being iterated:
// tasks executed earlier in the cycle may append follow-on tasks, and the
// pending set is re-sorted (stable, by sort key) before each pop. This is
// what guarantees that restart tasks injected by a refresh run after the
// refresh that spawned them, regardless of when they were added.
//
// Thread-safety: Add may be called from any goroutine; in practice the
// single execution goroutine is the only caller during a drain.
type Cycle struct {
	mu      sync.Mutex
	pending []Task
	dirty   bool
	popped  int
}

// NewCycle creates a cycle containing the given tasks.
func NewCycle(tasks ...Task) *Cycle {
	c := &Cycle{pending: make([]Task, 0, len(tasks)+8)}
	c.pending = append(c.pending, tasks...)
	c.dirty = len(c.pending) > 1
	return c
}

// Add appends a task to the cycle. During a drain the task runs later in
// the same cycle, at the position its sort key dictates.
func (c *Cycle) Add(t Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, t)
	c.dirty = true
}

// Next removes and returns the pending task with the smallest sort key.
// Returns (nil, false) when the cycle is drained. The sort is stable, so
// tasks with identical keys run in insertion order.
func (c *Cycle) Next() (Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return nil, false
	}
	if c.dirty {
		sort.SliceStable(c.pending, func(i, j int) bool {
			return c.pending[i].SortKey() < c.pending[j].SortKey()
		})
		c.dirty = false
	}

	t := c.pending[0]
	// Nil out the slot so the drained task is collectable.
	c.pending[0] = nil
	if len(c.pending) == 1 {
		c.pending = c.pending[:0]
	} else {
		c.pending = c.pending[1:]
	}
	c.popped++
	return t, true
}

// Len returns the number of pending tasks.
func (c *Cycle) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Executed returns how many tasks have been popped so far.
func (c *Cycle) Executed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.popped
}
