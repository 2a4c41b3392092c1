// Package realtime reacts to post-commit mutation events on employee-related
// records, rebuilds the aggregate employee record, and fans it out to the
// connection registry.
package realtime
