package psychometrics

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
)

const pgUniqueViolation = "23505"

// MapStoreError converts storage failures into domain errors.
func MapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return psy.NewError(psy.CodeNotFound, op, "record not found", err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return psy.NewError(psy.CodeInternal, op, "conflicting write on "+pgErr.ConstraintName, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return psy.NewError(psy.CodeInternal, op, "storage call cancelled", err)
	}
	return psy.Wrap(psy.CodeInternal, op, err)
}
