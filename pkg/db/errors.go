package db

import (
	"errors"
	"strings"

	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"gorm.io/gorm"
)

// IsUniqueViolation reports a duplicate key, optionally on one constraint.
// SQLite only reports the violated columns, so the constraint name is matched
// against the message there.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pkgerrors.SQLState(err) != "" {
		return pkgerrors.IsUniqueViolation(err, constraintName)
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "UNIQUE constraint failed")
}

// IsSerializationFailure reports a serializable transaction that lost a race
// and may be retried.
func IsSerializationFailure(err error) bool {
	return pkgerrors.SQLState(err) == "40001"
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
