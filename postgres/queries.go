package postgres

import "fmt"

type queries struct {
	insertEvent    string
	fetchAfter     string
	latestID       string
	ensureListener string
	acquire        string
	refresh        string
	release        string
	nextSequence   string
	minCursor      string
	prune          string
}

func newQueries(events, cursors, sequences string) queries {
	cols := "id, event_type, payload, created_at"
	insertEvent := fmt.Sprintf(
		"INSERT INTO %s (event_type, payload) VALUES ($1, $2) RETURNING id",
		events,
	)
	fetchAfter := fmt.Sprintf(
		"SELECT %s FROM %s WHERE id > $1 ORDER BY id ASC LIMIT $2",
		cols,
		events,
	)
	latestID := fmt.Sprintf("SELECT COALESCE(MAX(id), 0) FROM %s", events)
	ensureListener := fmt.Sprintf(
		"INSERT INTO %s (listener_id, cursor) "+
			"VALUES ($1, (SELECT COALESCE(MAX(id), 0) FROM %s)) "+
			"ON CONFLICT (listener_id) DO NOTHING",
		cursors,
		events,
	)
	acquire := fmt.Sprintf(
		"UPDATE %s SET lock_holder = $2, lock_expires_at = now() + make_interval(secs => $3) "+
			"WHERE listener_id = $1 "+
			"AND (lock_holder IS NULL OR lock_expires_at IS NULL OR lock_expires_at <= now()) "+
			"RETURNING cursor, lock_expires_at",
		cursors,
	)
	refresh := fmt.Sprintf(
		"UPDATE %s SET lock_expires_at = now() + make_interval(secs => $3) "+
			"WHERE listener_id = $1 AND lock_holder = $2 AND lock_expires_at > now() "+
			"RETURNING lock_expires_at",
		cursors,
	)
	release := fmt.Sprintf(
		"UPDATE %s SET cursor = GREATEST(cursor, $3), lock_holder = NULL, lock_expires_at = NULL "+
			"WHERE listener_id = $1 AND lock_holder = $2",
		cursors,
	)
	nextSequence := fmt.Sprintf(
		"INSERT INTO %s AS s (stream_id, next_value) VALUES ($1, $2 + 1) "+
			"ON CONFLICT (stream_id) DO UPDATE SET next_value = s.next_value + $2 "+
			"RETURNING s.next_value - $2",
		sequences,
	)
	minCursor := fmt.Sprintf("SELECT COALESCE(MIN(cursor), 0) FROM %s", cursors)
	prune := fmt.Sprintf(
		"DELETE FROM %s WHERE id IN ("+
			"SELECT id FROM %s WHERE id <= $1 AND created_at < $2 ORDER BY id ASC LIMIT $3)",
		events,
		events,
	)

	return queries{
		insertEvent:    insertEvent,
		fetchAfter:     fetchAfter,
		latestID:       latestID,
		ensureListener: ensureListener,
		acquire:        acquire,
		refresh:        refresh,
		release:        release,
		nextSequence:   nextSequence,
		minCursor:      minCursor,
		prune:          prune,
	}
}
