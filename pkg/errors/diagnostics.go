package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATEs the services react to.
var pgConditions = map[string]string{
	"23505": "unique_violation",
	"23503": "foreign_key_violation",
	"23514": "check_violation",
	"40001": "serialization_failure",
	"40P01": "deadlock_detected",
	"55P03": "lock_not_available",
	"57014": "query_canceled",
}

type pgDiag struct {
	code, constraint, table, detail, message string
}

// pgDiagnostics finds a Postgres error from either driver in err's chain. The
// API runs on pgx; lib/pq errors surface from goose migrations.
func pgDiagnostics(err error) (pgDiag, bool) {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return pgDiag{pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.Detail, pgxErr.Message}, true
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return pgDiag{string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Detail, pqErr.Message}, true
	}
	return pgDiag{}, false
}

// SQLState returns the Postgres error code in err's chain, or "".
func SQLState(err error) string {
	d, _ := pgDiagnostics(err)
	return d.code
}

// IsUniqueViolation reports a duplicate key from Postgres, optionally limited
// to one constraint.
func IsUniqueViolation(err error, constraint string) bool {
	d, ok := pgDiagnostics(err)
	return ok && d.code == "23505" && (constraint == "" || d.constraint == constraint)
}

// LogFields flattens err for a structured log entry: message, code, the
// unwrapped chain and any Postgres diagnostics.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	var chain []string
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	fields := map[string]any{
		"error":       err.Error(),
		"error_code":  CodeOf(err),
		"error_chain": chain,
	}
	d, ok := pgDiagnostics(err)
	if !ok {
		return fields
	}
	fields["pg_code"] = d.code
	if cond, known := pgConditions[d.code]; known {
		fields["pg_condition"] = cond
	}
	for key, value := range map[string]string{"pg_constraint": d.constraint, "pg_table": d.table, "pg_detail": d.detail, "pg_message": d.message} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
