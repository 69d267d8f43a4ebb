// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment supports one, and falls back to plain sequential writes on a
// standalone server.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Runner executes fn inside a transaction on client.
type Runner struct {
	client *mongo.Client
	log    *zap.Logger
}

// New returns a Runner. A nil client makes every Run a plain call to fn.
func New(client *mongo.Client, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{client: client, log: log}
}

// Run calls fn with a session context. Store calls made with that context
// join the transaction. If the server cannot run transactions, fn is run
// again without one; each write in fn is then individually conditional.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.client == nil {
		return fn(ctx)
	}

	sess, err := r.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		r.log.Debug("transactions unsupported; running without", zap.Error(err))
		return fn(ctx)
	}
	return err
}

// IsNotSupported reports whether err means the deployment cannot run
// transactions (standalone mongod, or a driver/session mismatch).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation: transactions need a replica set member
			51,  // legacy IllegalOperation
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	hasTxn := strings.Contains(msg, "transaction")
	switch {
	case hasTxn && strings.Contains(msg, "replica set"):
		return true
	case strings.Contains(msg, "session") && strings.Contains(msg, "not supported"):
		return true
	case hasTxn && strings.Contains(msg, "session"):
		return true
	case hasTxn && strings.Contains(msg, "illegal operation"):
		return true
	}
	return false
}
