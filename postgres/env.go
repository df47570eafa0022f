package postgres

import (
	"os"
	"strings"
)

// OptionsFromEnv reads store configuration from OUTBOX_* environment
// variables. Unset variables keep their defaults, so the result can always be
// passed straight to NewStore.
//
//	OUTBOX_EVENTS_TABLE      event table name
//	OUTBOX_CURSORS_TABLE     listener cursor table name
//	OUTBOX_SEQUENCES_TABLE   stream sequence table name
//	OUTBOX_VALIDATE_PAYLOAD  toggle JSON payload validation on append
func OptionsFromEnv() []Option {
	var opts []Option

	if v := strings.TrimSpace(os.Getenv("OUTBOX_EVENTS_TABLE")); v != "" {
		opts = append(opts, WithEventsTable(v))
	}
	if v := strings.TrimSpace(os.Getenv("OUTBOX_CURSORS_TABLE")); v != "" {
		opts = append(opts, WithCursorsTable(v))
	}
	if v := strings.TrimSpace(os.Getenv("OUTBOX_SEQUENCES_TABLE")); v != "" {
		opts = append(opts, WithSequencesTable(v))
	}
	if v, ok := envBool("OUTBOX_VALIDATE_PAYLOAD"); ok {
		opts = append(opts, WithValidatePayload(v))
	}

	return opts
}

func envBool(name string) (value, ok bool) {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(name))) {
	case "1", "true", "t", "yes", "y", "on":
		return true, true
	case "0", "false", "f", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
