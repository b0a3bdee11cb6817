// Package sqlxrepos implements the persistence ports on Postgres with jmoiron/sqlx and lib/pq.
package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
)

// postgres error codes
const (
	uniqueViolation    = pq.ErrorCode("23505")
	queryCanceled      = pq.ErrorCode("57014")
	adminShutdown      = pq.ErrorCode("57P01")
	cannotConnectNow   = pq.ErrorCode("57P03")
	tooManyConnections = pq.ErrorCode("53300")
	connectionClass    = pq.ErrorClass("08")
)

type baseRepo struct {
	db      sqlx.ExtContext
	timeout time.Duration
}

func newRepo(db sqlx.ExtContext, conf *core.Config) baseRepo {
	return baseRepo{db: db, timeout: conf.Database.QueryTimeout}
}

// withTimeout bounds ctx by the configured query timeout.
func (r baseRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// trapErr maps driver errors to the errors of the ports:
// sql.ErrNoRows to notFound, unique violations to duplicate, deadlines and cancellations to
// core.ErrTimeout, connection failures to core.ErrStoreUnavailable.
func trapErr(err error, notFound, duplicate error, msg string) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows && notFound != nil {
		return notFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(core.ErrTimeout, msg)
	}
	if errors.Is(err, driver.ErrBadConn) {
		return errors.Wrap(core.ErrStoreUnavailable, msg)
	}

	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		switch {
		case e.Code == uniqueViolation && duplicate != nil:
			return duplicate
		case e.Code == queryCanceled:
			return errors.Wrap(core.ErrTimeout, msg)
		case e.Code == adminShutdown, e.Code == cannotConnectNow, e.Code == tooManyConnections,
			e.Code.Class() == connectionClass:
			return errors.Wrap(core.ErrStoreUnavailable, msg)
		}
	case net.Error:
		if e.Timeout() {
			return errors.Wrap(core.ErrTimeout, msg)
		}
		return errors.Wrap(core.ErrStoreUnavailable, msg)
	}
	return errors.Wrap(err, msg)
}
