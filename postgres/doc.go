// Package postgres implements the outbox storage backend on PostgreSQL via
// database/sql and the pgx stdlib driver.
//
// Three tables back the engine: the append-only event log, the per-listener
// cursor/lock rows, and the per-stream sequence counters. All coordination
// happens through single-statement atomic SQL (compare-and-swap lock claims,
// upsert-and-return sequence increments); no application-level mutex is
// involved, so correctness holds across any number of server processes.
package postgres
