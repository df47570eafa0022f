// Package outbox implements a transactional-outbox dispatch engine for
// multi-instance deployments sharing one Postgres database.
//
// Typical flow:
//  1. Within a business transaction, append outbox events using a
//     storage-specific writer (see the postgres package).
//  2. After commit, call Coordinator.Trigger for each listener that cares;
//     triggers are debounced so bursts of writes cause one drain.
//  3. The drain acquires the listener's cursor lock, fetches events after the
//     stored cursor, runs side effects in ascending id order, advances the
//     cursor and releases the lock. A crashed holder's lock self-expires and
//     another instance resumes from the last persisted cursor.
//
// Delivery is at-least-once per listener; side effects must be idempotent.
// Ordering is guaranteed within one listener, never across listeners.
package outbox
