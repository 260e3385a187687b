package submissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLITE_BUSY primary result code; extended codes keep it in the low byte.
const sqliteBusy = 5

var busyBackoff = []time.Duration{
	10 * time.Millisecond,
	20 * time.Millisecond,
	40 * time.Millisecond,
	80 * time.Millisecond,
}

func isBusy(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()&0xff == sqliteBusy
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// exec runs a write, retrying while another connection holds the lock.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	for _, wait := range busyBackoff {
		if !isBusy(err) {
			break
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		res, err = s.db.ExecContext(ctx, query, args...)
	}
	return res, err
}

// optional maps "" to NULL.
func optional(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const timeLayout = time.RFC3339Nano

func stamp(t time.Time) string { return t.UTC().Format(timeLayout) }

// instant scans a TEXT timestamp column into a time.Time.
type instant struct{ dst *time.Time }

func (i instant) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*i.dst = time.Time{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case time.Time:
		*i.dst = v.UTC()
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
	for _, layout := range []string{timeLayout, time.DateTime} {
		if t, err := time.Parse(layout, raw); err == nil {
			*i.dst = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", raw)
}
