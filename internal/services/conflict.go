package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "hearth/internal/errors"
)

// lockForUpdate adds a row-level FOR UPDATE lock on dialects that support
// it. SQLite serializes writers on its own, so no clause is needed there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// mapConflict translates database serialization and deadlock failures into
// ErrConflict so callers can retry the request with the same inputs.
// AppErrors pass through untouched.
func mapConflict(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	msg := err.Error()
	if strings.Contains(msg, "40001") || // serialization_failure
		strings.Contains(msg, "40P01") || // deadlock_detected
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "database is locked") { // sqlite busy
		return apperrors.Wrap(apperrors.ErrConflict, err)
	}

	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}
