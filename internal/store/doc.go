// Package store provides SQLite-backed durable storage for the installer
// journal.
//
// The journal is append-only and holds:
//   - Cycles: one row per installer cycle (id, timing, task count)
//   - Task executions: one row per executed task, keyed (cycle_id, seq)
//   - Module states: last known lifecycle state per bundle
//
// Ordering within a cycle uses the seq column, the executor's position
// counter - never timestamps. Timestamps in the schema are informational.
//
// Writes are idempotent where rows are keyed: duplicate task execution
// records are silently ignored (ON CONFLICT DO NOTHING), module states
// are upserts.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
