// internal/app/system/txn/txn.go

// Package txn wraps Mongo multi-document transactions for the roster store.
//
// Every structural roster mutation (rename re-pointing, enroll, unenroll)
// runs through WithTransaction so that all contained writes commit or none
// do, and so that counter updates are read-modify-write inside the same
// transaction attempt. Conflicting concurrent transactions are retried a
// bounded number of times before surfacing ErrConflict.
//
// Standalone Mongo servers (no replica set) reject transactions with
// command errors 20/51/263. In that case the callback is re-run in the
// session without a transaction, which keeps dev setups working but loses
// atomicity; the fallback is logged at Warn so it is never silent.
package txn

import (
	"context"
	"errors"
	"strings"

	"maktabhub/internal/app/system/metrics"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// maxAttempts bounds retries on transient transaction errors and write
// conflicts before the operation fails with ErrConflict.
const maxAttempts = 4

// ErrConflict is returned when a transaction keeps conflicting with
// concurrent transactions after all retry attempts.
var ErrConflict = errors.New("transaction conflict: retries exhausted")

// WithTransaction runs fn inside one atomic multi-document transaction.
// fn may be invoked more than once; it must be safe to retry.
func WithTransaction(ctx context.Context, client *mongo.Client, logger *zap.Logger, fn func(sc mongo.SessionContext) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		for attempt := 1; ; attempt++ {
			if err := sess.StartTransaction(txnOpts); err != nil {
				if IsNotSupported(err) {
					return runWithoutTransaction(sc, logger, fn)
				}
				return err
			}

			err := fn(sc)
			if err == nil {
				err = sess.CommitTransaction(sc)
				if err == nil {
					return nil
				}
			} else {
				// Abort failures don't matter; the server times the
				// transaction out either way.
				_ = sess.AbortTransaction(sc)
			}

			if IsNotSupported(err) {
				return runWithoutTransaction(sc, logger, fn)
			}
			if !IsConflict(err) {
				return err
			}
			if attempt >= maxAttempts {
				logger.Warn("transaction retries exhausted",
					zap.Int("attempts", attempt), zap.Error(err))
				return ErrConflict
			}
			metrics.TxnRetries.Inc()
			logger.Debug("retrying conflicting transaction",
				zap.Int("attempt", attempt), zap.Error(err))
		}
	})
}

// runWithoutTransaction executes fn in the session without transaction
// semantics. Writes apply sequentially and partial results are possible.
func runWithoutTransaction(sc mongo.SessionContext, logger *zap.Logger, fn func(sc mongo.SessionContext) error) error {
	metrics.TxnFallbacks.Inc()
	logger.Warn("server does not support transactions; applying writes sequentially without atomicity")
	return fn(sc)
}

// IsConflict reports whether err is a conflict with a concurrent
// transaction that is worth retrying.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorLabel("TransientTransactionError") || se.HasErrorLabel("UnknownTransactionCommitResult") {
			return true
		}
		if se.HasErrorCode(112) { // WriteConflict
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "write conflict")
}

// IsNotSupported reports whether err means the server cannot run
// multi-document transactions (standalone deployment, old wire version,
// or an operation that is illegal inside a transaction).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "transaction") {
		if strings.Contains(s, "replica set") ||
			strings.Contains(s, "session") ||
			strings.Contains(s, "illegal operation") {
			return true
		}
	}
	return strings.Contains(s, "session") && strings.Contains(s, "not supported")
}
