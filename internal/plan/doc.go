// Package plan loads install plans and compiles them into installer
// tasks.
//
// A plan is a CUE document listing bundle actions:
//
//	install: [{id: "com.example.api", version: "2.1.0"}]
//	update:  [{id: "com.example.core", version: "1.4.2"}]
//	uninstall: [{id: "com.example.legacy"}]
//
// Plans are validated against the embedded #Plan schema before
// compilation, so malformed documents fail with positions instead of
// surfacing as half-built cycles. A refresh task is appended whenever the
// plan updates or uninstalls anything (overridable with the refresh
// field), since stale wiring only takes effect at the next refresh.
package plan
