package sqlxrepos

import (
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-index rejection,
// optionally narrowed to a named constraint.
func isUniqueViolation(err error, constraint string) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == uniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
	}
	return false
}

// trapNoRowsErr maps psql "no rows" to the domain's not-found sentinel.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// jsonbValue marshals v for a jsonb column; nil stays NULL.
func jsonbValue(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling jsonb")
	}
	return data, nil
}

// jsonbScan unmarshals a jsonb column into v; NULL is a no-op.
func jsonbScan(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, v), "unmarshaling jsonb")
}
