package db

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxnFunc is the body of a transactional unit of work. The context it receives is a
// session context when a transaction is active; all reads and writes inside the unit
// must use it.
type TxnFunc func(ctx context.Context) error

// WithTransaction runs fn inside a MongoDB multi-document transaction so that a
// status change and its cross-entity side effects commit or abort as one unit.
//
// Standalone deployments (local dev, CI) have no replica set and therefore no
// transaction support; in that case fn runs once without a session, which preserves
// behavior for the single-document conditional updates the services lean on.
func WithTransaction(ctx context.Context, db *mongo.Database, fn TxnFunc) error {
	session, err := db.Client().StartSession()
	if err != nil {
		return fn(ctx)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && isTransactionUnsupported(err) {
		return fn(ctx)
	}
	return err
}

// isTransactionUnsupported reports whether the error means the deployment cannot run
// transactions at all (as opposed to a transaction that failed).
func isTransactionUnsupported(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		// 20 = IllegalOperation: raised by standalone servers on transaction start.
		if ce.Code == 20 {
			return true
		}
	}
	return strings.Contains(err.Error(), "Transaction numbers are only allowed on a replica set")
}
