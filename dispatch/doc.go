// Package dispatch contains the concrete outbox listeners: typed event
// payloads, a background-job listener that turns command events into queue
// jobs, and a notification listener that fans message mentions out into
// per-user notification rows.
//
// Both listeners are built on the generic outbox processor and are safe under
// at-least-once delivery: job ids and notification rows derive from the event
// content, so redelivery after a crash deduplicates instead of duplicating.
package dispatch
