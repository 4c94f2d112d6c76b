// Package bundle defines the module runtime boundary of the installer.
//
// A bundle is a unit of deployable, independently loadable code with its
// own lifecycle state. Bundles are owned by a Runtime; installer tasks
// reference them by ID only and perform lifecycle changes through the
// Runtime, never by holding module objects across task executions.
//
// ARCHITECTURE:
//
// Runtime Boundary:
// The Runtime interface is the only surface the installer core sees. The
// production runtime is whatever module host embeds the installer; this
// package ships MemRuntime, a complete in-memory implementation used by
// the CLI and by tests.
//
// Notification Thread:
// Refresh completion and module-change events are delivered on a
// runtime-owned goroutine, concurrently with the installer's single
// task-execution goroutine. Subscribers must synchronize any state they
// share with task execution.
//
// Refresh Semantics:
// Refresh recomputes inter-module linkage after changes. It may stop
// active bundles as a side effect, and a refresh with nothing to do may
// never fire a completion event at all. Callers therefore bound any wait
// for completion (see the installer package).
package bundle
