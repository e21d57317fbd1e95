package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"syscall"

	"project-management-api/internal/apperr"

	"gorm.io/gorm"
)

// Do runs fn against the connection. A stale-connection failure triggers one
// ping-and-retry; any other error is returned classified.
func (d *DB) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.withRetry(ctx, func() error {
		return fn(d.conn.WithContext(ctx))
	})
}

// Transaction runs fn in a transaction with the same retry rule as Do.
func (d *DB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.withRetry(ctx, func() error {
		return d.conn.WithContext(ctx).Transaction(fn)
	})
}

func (d *DB) withRetry(ctx context.Context, op func() error) error {
	err := op()
	if err == nil {
		return nil
	}
	if !isStaleConn(err) {
		return Classify(err)
	}

	d.log.Warn().Err(err).Msg("stale database connection, reconnecting")
	if perr := d.Ping(ctx); perr != nil {
		return Classify(errors.Join(err, perr))
	}
	return Classify(op())
}

// Classify maps ORM and driver errors onto apperr kinds. Errors that already
// carry a kind pass through.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.Wrap(err, apperr.KindNotFound, "Record not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(err, apperr.KindConflict, "Record already exists")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperr.Wrap(err, apperr.KindInvalid, "Referenced record does not exist")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(err, apperr.KindUnavailable, "Request cancelled")
	case isStaleConn(err):
		return apperr.Wrap(err, apperr.KindUnavailable, "Database unavailable")
	}
	return apperr.Wrap(err, apperr.KindInternal, "Database error")
}

func isStaleConn(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
