package dbutil

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation pq.ErrorCode = "23505"

var limitRegex = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Finalize turns gendry output into postgres SQL. gendry emits the mysql form
// "LIMIT offset,count"; it becomes "LIMIT count OFFSET offset" and every
// placeholder is rebound to $n. The caller's args slice is left untouched.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	out := make([]interface{}, len(args))
	copy(out, args)
	if loc := limitRegex.FindStringIndex(query); loc != nil {
		idx := strings.Count(query[:loc[0]], "?")
		if idx+1 < len(out) {
			out[idx], out[idx+1] = out[idx+1], out[idx]
			query = query[:loc[0]] + "LIMIT ? OFFSET ?" + query[loc[1]:]
		}
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), out
}

// IsConflict reports a unique constraint violation anywhere in err's chain.
func IsConflict(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
