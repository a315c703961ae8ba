// Package retry runs one unit of work against the ledger with bounded,
// jittered exponential backoff. Every attempt opens a fresh transaction and
// the callback re-reads all state it depends on.
package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qa-forum/backend/internal/metrics"
)

// Options bound the retry loop. Zero values fall back to the defaults below.
type Options struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

const (
	DefaultMaxAttempts    = 5
	DefaultInitialBackoff = 20 * time.Millisecond
	DefaultMaxBackoff     = time.Second
)

type Coordinator struct {
	tx   ledger.Transactor
	opts Options
}

func New(tx ledger.Transactor, opts Options) *Coordinator {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	return &Coordinator{tx: tx, opts: opts}
}

func (c *Coordinator) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialBackoff
	b.MaxInterval = c.opts.MaxBackoff
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.opts.MaxAttempts-1)), ctx)
}

// Run executes fn inside a transaction, retrying transient failures. The
// returned error is always nil or an *apperr.Error:
//   - typed errors from fn pass through unchanged
//   - transient failures that outlive the budget become apperr.ErrTransient
//   - constraint violations become apperr.ErrConflict on the first attempt
//   - anything else is logged with fields and becomes apperr.ErrUnknown
func (c *Coordinator) Run(ctx context.Context, op string, fields log.Fields, fn func(tx ledger.Tx) error) error {
	start := time.Now()
	logger := log.WithFields(fields).WithField("op", op)

	attempt := 0
	operation := func() error {
		attempt++
		metrics.TxAttempts.WithLabelValues(op).Inc()

		err := c.tx.InTx(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() == nil && IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		metrics.TxRetries.WithLabelValues(op).Inc()
		logger.WithError(err).WithFields(log.Fields{
			"attempt": attempt,
			"backoff": wait,
		}).Debug("transient transaction failure, retrying")
	}

	err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify)
	err = c.classify(ctx, logger.WithField("attempts", attempt), err)

	metrics.TxOutcomes.WithLabelValues(op, apperr.Kind(err)).Inc()
	metrics.TxDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}

func (c *Coordinator) classify(ctx context.Context, logger *log.Entry, err error) error {
	switch {
	case err == nil:
		return nil
	case apperr.IsTyped(err):
		return err
	case ctx.Err() != nil:
		logger.WithError(err).Warn("transaction aborted by context")
		return apperr.Transient(ctx.Err())
	case IsTransient(err):
		logger.WithError(err).Warn("transaction retries exhausted")
		return apperr.Transient(err)
	case isConstraintViolation(err):
		logger.WithError(err).Warn("transaction rejected by a constraint")
		return apperr.Conflict(err)
	default:
		logger.WithError(err).Error("unexpected storage failure")
		return apperr.Unknown(err)
	}
}

// IsTransient reports whether a fresh attempt of the same unit of work can
// succeed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, apperr.ErrTransient) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"57P01", // admin_shutdown
			"57P02", // crash_shutdown
			"57P03": // cannot_connect_now
			return true
		}
		return strings.HasPrefix(pgErr.Code, "08")
	}

	return pgconn.SafeToRetry(err)
}

// isConstraintViolation reports SQLSTATE class 23 (integrity constraint
// violation). Re-running the unit cannot change the outcome.
func isConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23")
}
