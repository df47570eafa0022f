package postgres

import "fmt"

const eventsSchemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	event_type TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const cursorsSchemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	listener_id TEXT PRIMARY KEY,
	cursor BIGINT NOT NULL DEFAULT 0,
	lock_holder UUID NULL,
	lock_expires_at TIMESTAMPTZ NULL
);`

const sequencesSchemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	stream_id TEXT PRIMARY KEY,
	next_value BIGINT NOT NULL DEFAULT 1
);`

// EventsSchema returns DDL for the append-only event table.
func EventsSchema(table string) (string, error) {
	name, err := sanitizeTableName(table)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(eventsSchemaTemplate, name), nil
}

// CursorsSchema returns DDL for the per-listener cursor and lock table.
func CursorsSchema(table string) (string, error) {
	name, err := sanitizeTableName(table)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(cursorsSchemaTemplate, name), nil
}

// SequencesSchema returns DDL for the per-stream sequence counter table.
func SequencesSchema(table string) (string, error) {
	name, err := sanitizeTableName(table)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(sequencesSchemaTemplate, name), nil
}

// Schema returns the DDL for all three tables using cfg defaults for any
// empty table name.
func Schema(opts ...Option) ([]string, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	events, err := EventsSchema(cfg.EventsTable)
	if err != nil {
		return nil, err
	}
	cursors, err := CursorsSchema(cfg.CursorsTable)
	if err != nil {
		return nil, err
	}
	sequences, err := SequencesSchema(cfg.SequencesTable)
	if err != nil {
		return nil, err
	}

	return []string{events, cursors, sequences}, nil
}
